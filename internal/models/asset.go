package models

import "time"

// AssetTypeImage is the type recorded for every upload.
const AssetTypeImage = "image"

// MaxTitleLength matches assets.title VARCHAR(150). Titles are upload file names.
const MaxTitleLength = 150

type Asset struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	FileURL   string    `json:"file_url"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
