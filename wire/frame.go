package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nimbusact/actorcore/ref"
)

// MaxFrameSize bounds a single frame's payload to guard against a
// corrupted or hostile length prefix causing an unbounded allocation.
const MaxFrameSize = 64 << 20 // 64 MiB

// WriteFrame writes one length-prefixed frame: a 4-byte network-byte-order
// payload size followed by the payload itself, per spec.md §4.F / §6.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame blocks until one full length-prefixed frame has been read
// from r, or an error (including EOF on disconnect) occurs.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("wire: frame size %d exceeds max %d", size, MaxFrameSize)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return payload, nil
}

// ProcessInfo is the handshake frame each side of a peer connection sends
// first: its own NodeId plus the ActorIds it expects the peer to track
// (spec.md §6).
type ProcessInfo struct {
	Node          ref.NodeId
	AdvertisedIDs []ref.ActorId
}

// WriteProcessInfo encodes and writes the handshake frame.
func WriteProcessInfo(w io.Writer, info ProcessInfo) error {
	var body []byte
	body = append(body, encodeUint32(info.Node.ProcessID)...)
	body = append(body, info.Node.HostID[:]...)
	body = append(body, encodeUint32(uint32(len(info.AdvertisedIDs)))...)
	for _, id := range info.AdvertisedIDs {
		body = append(body, encodeUint32(uint32(id))...)
	}
	return WriteFrame(w, body)
}

// ReadProcessInfo reads and decodes the handshake frame written by
// WriteProcessInfo.
func ReadProcessInfo(r io.Reader) (ProcessInfo, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return ProcessInfo{}, err
	}
	if len(payload) < 4+ref.HostIDSize+4 {
		return ProcessInfo{}, fmt.Errorf("wire: short process-info frame")
	}
	off := 0
	processID := decodeUint32(payload[off:])
	off += 4
	var hostID ref.HostID
	copy(hostID[:], payload[off:off+ref.HostIDSize])
	off += ref.HostIDSize
	count := decodeUint32(payload[off:])
	off += 4
	if uint64(off)+uint64(count)*4 > uint64(len(payload)) {
		return ProcessInfo{}, fmt.Errorf("wire: truncated advertised id list")
	}
	ids := make([]ref.ActorId, 0, count)
	for i := uint32(0); i < count; i++ {
		ids = append(ids, ref.ActorId(decodeUint32(payload[off:])))
		off += 4
	}
	return ProcessInfo{
		Node:          ref.NodeId{ProcessID: processID, HostID: hostID},
		AdvertisedIDs: ids,
	}, nil
}

func encodeUint32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func decodeUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}
