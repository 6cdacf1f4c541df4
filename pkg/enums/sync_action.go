package enums

// SyncAction describes what a reconciliation pass did to the local order.
type SyncAction string

const (
	SyncActionCreated SyncAction = "created"
	SyncActionUpdated SyncAction = "updated"
	SyncActionDeleted SyncAction = "deleted"
)

// String implements fmt.Stringer.
func (a SyncAction) String() string {
	return string(a)
}
