package messages

// Batch is one persisted turn batch. IDs are assigned by the database and
// strictly increase with write order.
type Batch struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Data string `gorm:"column:message_list;size:16777216;not null"`
}

// TableName sets the table name for GORM
func (Batch) TableName() string {
	return "messages"
}
