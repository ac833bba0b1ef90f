package models

import "time"

// Title is a work that users review. Rating is the mean review score, read
// from the reviews table and nil until the title has a review.
type Title struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(256);not null;index"`
	Year        int       `json:"year" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Rating      *float64  `json:"rating" gorm:"-:migration;->"`
	CreatedAt   time.Time `json:"-"`
}

// Review is keyed by (title, author): one review per user per title.
type Review struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)"`
	TitleID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_review_title_author"`
	AuthorID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_review_title_author"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text     string    `gorm:"type:text;not null"`
	Score    int       `gorm:"not null"`
	PubDate  time.Time `gorm:"not null;index"`
}

func (r *Review) OwnerID() string { return r.AuthorID }

// Comment belongs to exactly one review.
type Comment struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)"`
	ReviewID string    `gorm:"type:varchar(36);not null;index"`
	AuthorID string    `gorm:"type:varchar(36);not null"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"not null;index"`
}

func (c *Comment) OwnerID() string { return c.AuthorID }
