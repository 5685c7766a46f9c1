package models

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"categoryId"`
	Name string `gorm:"size:100;not null" json:"name"`
}

type Author struct {
	ID   uint   `gorm:"primaryKey" json:"authorId"`
	Name string `gorm:"size:150;not null" json:"name"`
	Bio  string `gorm:"type:text" json:"bio,omitempty"`
}

type Publisher struct {
	ID      uint   `gorm:"primaryKey" json:"publisherId"`
	Name    string `gorm:"size:150;not null" json:"name"`
	Address string `gorm:"size:255" json:"address,omitempty"`
}
