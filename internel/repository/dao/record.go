package dao

import (
	"context"

	"gorm.io/gorm"
)

var ErrRecordNotFound = gorm.ErrRecordNotFound

// Record is the queryable index over the JSONL ledger. The ledger file stays
// the source of truth; this table exists so listings and audits do not have
// to rescan it.
type Record struct {
	Id          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string `gorm:"column:name;size:255;not null"`
	SavedAs     string `gorm:"column:saved_as;size:512;not null;uniqueIndex"`
	URL         string `gorm:"column:url;size:512;not null"`
	ContentType string `gorm:"column:content_type;size:128"`
	Size        int64  `gorm:"column:size"`
	UploadedBy  string `gorm:"column:uploaded_by;size:255"`
	// Upload time, unix milliseconds.
	Utime int64 `gorm:"column:utime;index"`
}

func (Record) TableName() string {
	return "upload_records"
}

type RecordDAO interface {
	Insert(ctx context.Context, r Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	SavedNames(ctx context.Context) (map[string]struct{}, error)
}

type recordDAO struct {
	db *gorm.DB
}

func NewRecordDAO(db *gorm.DB) RecordDAO {
	return &recordDAO{
		db: db,
	}
}

// InitTables migrates the index schema. Called once from wiring.
func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}

func (dao *recordDAO) Insert(ctx context.Context, r Record) error {
	return dao.db.WithContext(ctx).Create(&r).Error
}

func (dao *recordDAO) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	var recs []Record
	err := dao.db.WithContext(ctx).
		Order("utime DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

func (dao *recordDAO) SavedNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	err := dao.db.WithContext(ctx).
		Model(&Record{}).
		Pluck("saved_as", &names).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}
