package store

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chainanalytics/internal/model"
)

// Gateway is the storage gateway of spec §4.1: typed bulk read/write over
// the partitioned tables, plus the bulk aggregation queries in
// transfers.go. Mirrors the teacher's internal/db.Database wrapper around
// a single *gorm.DB.
type Gateway struct {
	db *gorm.DB
}

type Options struct {
	DSN             string
	Driver          string // "mysql" or "sqlite"
	Automigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(opt Options) (*Gateway, error) {
	gcfg := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Warn),
		PrepareStmt: true,
	}

	var dialector gorm.Dialector
	switch opt.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(opt.DSN)
	case "mysql":
		dialector = mysql.Open(opt.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opt.Driver)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "open connection", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, model.NewError(model.KindTransientDB, "store", "obtain *sql.DB", err)
	}
	if opt.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opt.MaxOpenConns)
	}
	if opt.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opt.MaxIdleConns)
	}
	if opt.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opt.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	gw := &Gateway{db: gdb}
	if opt.Automigrate {
		if err := gw.Migrate(); err != nil {
			return nil, err
		}
	}
	return gw, nil
}

// Migrate applies idempotent schema migrations for every analyzer table,
// spec §4.7 step 2 / §6 "schema versioning is by migration files applied
// idempotently". GORM's AutoMigrate is itself idempotent: repeated calls
// only add what's missing.
func (gw *Gateway) Migrate() error {
	if err := gw.db.AutoMigrate(AllModels()...); err != nil {
		return model.NewError(model.KindSchemaMismatch, "store", "automigrate", err)
	}
	return nil
}

func (gw *Gateway) DB() *gorm.DB { return gw.db }

func (gw *Gateway) Close() error {
	sqlDB, err := gw.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- shared JSON helpers for string/int slice columns ---

func toJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func fromJSONStrings(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(j, &out)
	return out
}

func fromJSONInts(j datatypes.JSON) []int {
	if len(j) == 0 {
		return nil
	}
	var out []int
	_ = json.Unmarshal(j, &out)
	return out
}

func fromJSONInt64Array24(j datatypes.JSON) [24]int64 {
	var out [24]int64
	if len(j) == 0 {
		return out
	}
	var tmp []int64
	_ = json.Unmarshal(j, &tmp)
	for i := 0; i < 24 && i < len(tmp); i++ {
		out[i] = tmp[i]
	}
	return out
}

func fromJSONInt64Array7(j datatypes.JSON) [7]int64 {
	var out [7]int64
	if len(j) == 0 {
		return out
	}
	var tmp []int64
	_ = json.Unmarshal(j, &tmp)
	for i := 0; i < 7 && i < len(tmp); i++ {
		out[i] = tmp[i]
	}
	return out
}

func fromJSONMap(j datatypes.JSON) map[string]any {
	if len(j) == 0 {
		return nil
	}
	var out map[string]any
	_ = json.Unmarshal(j, &out)
	return out
}

// Partition identifies a (network, window_days, processing_date) run, the
// unit every analyzer table is owned and rewritten by (spec §3/§4.5).
type Partition struct {
	Network        string
	WindowDays     int64
	ProcessingDate string
}

func (p Partition) where(db *gorm.DB) *gorm.DB {
	return db.Where("network = ? AND window_days = ? AND processing_date = ?",
		p.Network, p.WindowDays, p.ProcessingDate)
}
