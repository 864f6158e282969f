package sysmsg

// IsSystem marks the runtime's own message types, which PriorityMailbox
// dequeues ahead of ordinary traffic: Exit, Down, Timeout, LinkRequest,
// MonitorRequest and Kill all implement it. The dispatch loop intercepts
// LinkRequest, MonitorRequest and Kill; the others can reach the active
// handler.
type IsSystem interface {
	isSystemMessage()
}

func (Exit) isSystemMessage()           {}
func (Down) isSystemMessage()           {}
func (Timeout) isSystemMessage()        {}
func (LinkRequest) isSystemMessage()    {}
func (MonitorRequest) isSystemMessage() {}
func (Kill) isSystemMessage()           {}
