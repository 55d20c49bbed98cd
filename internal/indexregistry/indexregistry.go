/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package indexregistry is the on-disk index-file metadata catalog: which
// HEALPix pixel / scale band index files exist on disk and their file
// sizes, used by pkg/sysinfo's RAM-comparison admission check (spec.md
// §5 "Resource admission"). Backed by gorm + the sqlite driver, declared
// in the teacher's go.mod but never wired there.
package indexregistry

/*****************************************************************************************************************/

import (
	"time"

	"github.com/observerly/platesolve/pkg/healpix"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*****************************************************************************************************************/

// IndexFile is a single built index file's on-disk metadata record.
type IndexFile struct {
	ID uint `gorm:"primaryKey"`

	Path string `gorm:"uniqueIndex;not null"`

	NSide     int            `gorm:"not null"`
	Scheme    healpix.Scheme `gorm:"not null"`
	HealPixel int            `gorm:"index;not null"`

	SizeBytes int64 `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

/*****************************************************************************************************************/

// Registry is a handle onto the index-file metadata database.
type Registry struct {
	db *gorm.DB
}

/*****************************************************************************************************************/

// Open opens (creating if absent) the sqlite-backed registry at path and
// migrates its schema.
func Open(path string) (*Registry, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&IndexFile{}); err != nil {
		return nil, err
	}

	return &Registry{db: db}, nil
}

/*****************************************************************************************************************/

// Record upserts an index file's metadata, keyed on its path.
func (r *Registry) Record(file IndexFile) error {
	return r.db.Where(IndexFile{Path: file.Path}).
		Assign(IndexFile{
			NSide:     file.NSide,
			Scheme:    file.Scheme,
			HealPixel: file.HealPixel,
			SizeBytes: file.SizeBytes,
		}).
		FirstOrCreate(&file).Error
}

/*****************************************************************************************************************/

// Remove deletes an index file's metadata record by path (e.g. after the
// backing file itself has been deleted from disk).
func (r *Registry) Remove(path string) error {
	return r.db.Where("path = ?", path).Delete(&IndexFile{}).Error
}

/*****************************************************************************************************************/

// List returns every registered index file's metadata.
func (r *Registry) List() ([]IndexFile, error) {
	var files []IndexFile
	if err := r.db.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

/*****************************************************************************************************************/

// TotalSizeBytes sums the on-disk size of every registered index file, the
// figure pkg/sysinfo.CanLoadInParallel compares against free system RAM
// before enabling in-parallel index loading for a solve.
func (r *Registry) TotalSizeBytes() (uint64, error) {
	var total int64
	if err := r.db.Model(&IndexFile{}).Select("COALESCE(SUM(size_bytes), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total < 0 {
		return 0, nil
	}
	return uint64(total), nil
}

/*****************************************************************************************************************/

// Close releases the underlying database connection.
func (r *Registry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
