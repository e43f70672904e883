package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crucial707/asset-vault/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

type AssetRepo struct {
	DB *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{DB: db}
}

// ========================
// CREATE ASSET
// ========================

func (r *AssetRepo) Create(ctx context.Context, title, filePath, fileURL, assetType string) (models.Asset, error) {
	if assetType == "" {
		assetType = models.AssetTypeImage
	}

	asset := models.Asset{
		Title:    title,
		FilePath: filePath,
		FileURL:  fileURL,
		Type:     assetType,
	}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO assets (title, file_path, file_url, type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		title, filePath, fileURL, assetType,
	).Scan(&asset.ID, &asset.CreatedAt)
	if err != nil {
		return models.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

// ========================
// LIST ASSETS, NEWEST FIRST
// ========================

// List returns at most limit assets after skipping skip, newest first.
// limit is not capped here.
func (r *AssetRepo) List(ctx context.Context, skip, limit int) ([]models.Asset, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, file_path, file_url, type, created_at
		 FROM assets
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.Title, &a.FilePath, &a.FileURL, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
