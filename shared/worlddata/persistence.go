package worlddata

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"WorldVision/shared/util"

	"github.com/klauspost/compress/zstd"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CellModel é o esquema do banco para uma célula persistida.
// Data carrega o GOB da célula comprimido com zstd.
type CellModel struct {
	ID        string `gorm:"primaryKey"` // Coordenada formatada "X_Y"
	X, Y      int32  `gorm:"index:idx_pos"`
	Data      []byte
	MTime     int64
	UpdatedAt time.Time
}

// WorldMetadata armazena informações globais do mundo no banco.
type WorldMetadata struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

const CurrentFormatVersion = 1

// Persistence é o cache local de células em SQLite.
type Persistence struct {
	db *gorm.DB

	// dbMu serializa escritas no SQLite (evita "database is locked")
	dbMu sync.Mutex

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenPersistence abre (ou cria) o banco do mundo e roda as migrações.
func OpenPersistence(dir, worldName string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("%s.wv", worldName))

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no SQLite: %w", err)
	}

	if err := db.AutoMigrate(&CellModel{}, &WorldMetadata{}); err != nil {
		return nil, fmt.Errorf("falha na migração do banco: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	p := &Persistence{db: db, enc: enc, dec: dec}
	p.checkFormatVersion(worldName)
	return p, nil
}

// checkFormatVersion descarta o cache se o formato antigo for incompatível.
func (p *Persistence) checkFormatVersion(worldName string) {
	var meta WorldMetadata
	res := p.db.First(&meta, "key = ?", "format_version")
	want := fmt.Sprintf("%d", CurrentFormatVersion)

	if res.Error == nil && meta.Value != want {
		log.Printf("[WorldData] Formato do cache mudou (%s -> %s), limpando %s", meta.Value, want, worldName)
		p.db.Where("1 = 1").Delete(&CellModel{})
	}
	p.db.Save(&WorldMetadata{Key: "format_version", Value: want})
}

// SaveCell grava (ou substitui) uma célula no cache.
func (p *Persistence) SaveCell(d *CellData) error {
	raw, err := d.Encode()
	if err != nil {
		return fmt.Errorf("gob da célula %s: %w", d.Coord, err)
	}

	model := CellModel{
		ID:    fmt.Sprintf("%d_%d", d.Coord.X, d.Coord.Y),
		X:     d.Coord.X,
		Y:     d.Coord.Y,
		Data:  p.enc.EncodeAll(raw, nil),
		MTime: d.MTime,
	}

	p.dbMu.Lock()
	defer p.dbMu.Unlock()
	return p.db.Save(&model).Error
}

// LoadCell recupera uma célula do cache, se existir.
func (p *Persistence) LoadCell(coord util.CellCoord) (*CellData, bool) {
	var model CellModel
	res := p.db.First(&model, "id = ?", fmt.Sprintf("%d_%d", coord.X, coord.Y))
	if res.Error != nil {
		return nil, false
	}

	raw, err := p.dec.DecodeAll(model.Data, nil)
	if err != nil {
		log.Printf("[WorldData] Célula %s corrompida no cache (zstd): %v", coord, err)
		return nil, false
	}

	d, err := DecodeCell(raw)
	if err != nil {
		log.Printf("[WorldData] Célula %s corrompida no cache (gob): %v", coord, err)
		return nil, false
	}
	return d, true
}

// Close libera o encoder e fecha a conexão.
func (p *Persistence) Close() {
	p.enc.Close()
	if sqlDB, err := p.db.DB(); err == nil {
		sqlDB.Close()
	}
}
