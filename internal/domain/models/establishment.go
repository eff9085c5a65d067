package models

// Establishment 设备所属的场所（水厂、学校、社区等）
type Establishment struct {
	BaseModel
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Location string `gorm:"type:varchar(200)" json:"location"`
	AdminID  *uint  `gorm:"index" json:"adminId"`

	Devices []Device `gorm:"foreignKey:EstablishmentID" json:"devices,omitempty"`
}
