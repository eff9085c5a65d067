package models

// Device represents a water-quality sensor unit
type Device struct {
	BaseModel
	DeviceID        string `gorm:"type:varchar(64);uniqueIndex;not null" json:"deviceId"`
	Name            string `gorm:"type:varchar(100)" json:"name"`
	Location        string `gorm:"type:varchar(200)" json:"location"`
	EstablishmentID *uint  `json:"establishmentId"`
	AdminID         *uint  `gorm:"index" json:"adminId"` // 负责审批该设备访问申请的管理员

	Establishment *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
}
