package worlddata

import (
	"context"
	"fmt"
	"log"
	"sync"

	"WorldVision/shared/util"
)

// Source fornece a carga bruta de um landblock. Implementado pelo mundo
// procedural local e, no futuro, por um provedor remoto próprio.
type Source interface {
	FetchCell(ctx context.Context, coord util.CellCoord) (*CellData, error)
}

// ChangeFunc recebe notificações de mudança de região.
// affected == nil significa "tudo mudou".
type ChangeFunc func(affected []util.CellCoord)

// Store é o repositório autoritativo de dados de célula em memória,
// com cache opcional em SQLite e fan-out de notificações de mudança.
type Store struct {
	mu    sync.RWMutex
	cells map[util.CellKey]*CellData

	subsMu sync.Mutex
	subs   []ChangeFunc

	source Source
	db     *Persistence // nil = sem cache em disco

	// Bounds limita a grade válida do mapa (inclusivo). Células fora
	// dos limites nunca são criadas pelo streaming.
	Bounds struct {
		MinX, MinY, MaxX, MaxY int32
	}
}

// NewStore cria um repositório vazio alimentado por source.
func NewStore(source Source) *Store {
	s := &Store{
		cells:  make(map[util.CellKey]*CellData),
		source: source,
	}
	s.Bounds.MinX, s.Bounds.MinY = -32768, -32768
	s.Bounds.MaxX, s.Bounds.MaxY = 32767, 32767
	return s
}

// AttachPersistence liga o cache SQLite ao repositório.
func (s *Store) AttachPersistence(p *Persistence) {
	s.db = p
}

// InBounds verifica se a coordenada está dentro dos limites do mapa.
func (s *Store) InBounds(c util.CellCoord) bool {
	return c.X >= s.Bounds.MinX && c.X <= s.Bounds.MaxX &&
		c.Y >= s.Bounds.MinY && c.Y <= s.Bounds.MaxY
}

// Get retorna a célula se já estiver em memória.
func (s *Store) Get(coord util.CellCoord) (*CellData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.cells[coord.Key()]
	return d, ok
}

// MTime retorna a versão atual da célula (-1 se desconhecida).
func (s *Store) MTime(coord util.CellCoord) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.cells[coord.Key()]; ok {
		return d.MTime
	}
	return -1
}

// Ensure retorna a célula, buscando no cache em disco e depois na fonte
// se necessário. Seguro para chamada concorrente a partir dos jobs de
// geração; a fonte pode ser lenta, por isso recebe o contexto do job.
func (s *Store) Ensure(ctx context.Context, coord util.CellCoord) (*CellData, error) {
	if d, ok := s.Get(coord); ok {
		return d, nil
	}

	if s.db != nil {
		if d, ok := s.db.LoadCell(coord); ok {
			s.putQuiet(d)
			return d, nil
		}
	}

	if s.source == nil {
		return nil, fmt.Errorf("célula %s indisponível: sem fonte de dados", coord)
	}

	d, err := s.source.FetchCell(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("busca da célula %s: %w", coord, err)
	}

	s.putQuiet(d)
	if s.db != nil {
		if err := s.db.SaveCell(d); err != nil {
			log.Printf("[WorldData] Falha ao gravar célula %s no cache: %v", coord, err)
		}
	}
	return d, nil
}

// putQuiet insere sem notificar. Uma inserção inicial não é uma mudança:
// o streaming já vai gerar a célula pela primeira vez de qualquer forma.
func (s *Store) putQuiet(d *CellData) {
	s.mu.Lock()
	// Nunca rebaixa a versão: um push remoto pode ter chegado antes.
	if cur, ok := s.cells[d.Coord.Key()]; ok && cur.MTime >= d.MTime {
		s.mu.Unlock()
		return
	}
	s.cells[d.Coord.Key()] = d
	s.mu.Unlock()
}

// Apply substitui os dados de uma célula e notifica os inscritos.
// É o caminho dos pushes do servidor de edição.
func (s *Store) Apply(d *CellData) {
	s.putQuiet(d)
	if s.db != nil {
		if err := s.db.SaveCell(d); err != nil {
			log.Printf("[WorldData] Falha ao gravar célula %s no cache: %v", d.Coord, err)
		}
	}
	s.NotifyChanged([]util.CellCoord{d.Coord})
}

// Subscribe registra um ouvinte de mudanças de região.
func (s *Store) Subscribe(fn ChangeFunc) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

// NotifyChanged propaga uma mudança de região para todos os inscritos.
// affected == nil invalida tudo.
func (s *Store) NotifyChanged(affected []util.CellCoord) {
	s.subsMu.Lock()
	subs := make([]ChangeFunc, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(affected)
	}
}

// Drop remove a célula da memória (o cache em disco permanece).
func (s *Store) Drop(coord util.CellCoord) {
	s.mu.Lock()
	delete(s.cells, coord.Key())
	s.mu.Unlock()
}

// Close fecha o cache em disco, se houver.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
