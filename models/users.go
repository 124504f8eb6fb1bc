package models

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
	RoleSystem   = "system"
)

type User struct {
	BaseModel
	Name     string `gorm:"type:varchar(255); not null" json:"name"`
	Email    string `gorm:"type:varchar(255); uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(255); not null" json:"-"`
	Role     string `gorm:"type:varchar(20); not null;default:'customer'" json:"role"`
}
