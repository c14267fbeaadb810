package model

// PermissionID is the stable numeric identity of a permission. Values are
// persisted and must never be renumbered.
type PermissionID int16

// Permission is an atomic, named capability.
type Permission struct {
	ID   PermissionID `gorm:"type:smallint;primaryKey;autoIncrement:false" json:"id"`
	Name string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
}

func (Permission) TableName() string { return "permissions" }
