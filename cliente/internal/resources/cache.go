package resources

import (
	"context"
	"fmt"
	"log"
	"sync"

	"WorldVision/shared/util"

	"golang.org/x/sync/singleflight"
)

// entry é o registro de uma malha residente na GPU.
type entry struct {
	refCount uint
	handle   Handle
	bounds   util.AABB
	subParts []SubPart
}

// Cache é o registro compartilhado de malhas com contagem de referências.
// Contrato de threads:
//   - Prepare é chamado pelos jobs de geração (qualquer goroutine) e só
//     escreve no mapa de staging, protegido por mutex.
//   - EnsureUploaded, Acquire e Release mutam entradas e recursos de GPU
//     e são exclusivos da thread de render.
//
// Uma entrada nasce no primeiro EnsureUploaded e morre quando o refCount
// chega a zero; nunca é destruída com refCount > 0.
type Cache struct {
	mu      sync.RWMutex
	entries map[MeshID]*entry
	staged  map[MeshID]*MeshData // preparado mas ainda não enviado à GPU

	source Source
	device Device
	group  singleflight.Group
}

// NewCache cria o cache sobre uma fonte de malhas e um dispositivo.
func NewCache(source Source, device Device) *Cache {
	return &Cache{
		entries: make(map[MeshID]*entry),
		staged:  make(map[MeshID]*MeshData),
		source:  source,
		device:  device,
	}
}

// Has informa se a malha já está residente na GPU.
func (c *Cache) Has(id MeshID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Ready informa se a malha está residente ou preparada para upload.
func (c *Cache) Ready(id MeshID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.entries[id]; ok {
		return true
	}
	_, ok := c.staged[id]
	return ok
}

// Bounds retorna o volume local da malha, se conhecida.
func (c *Cache) Bounds(id MeshID) (util.AABB, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[id]; ok {
		return e.bounds, true
	}
	if d, ok := c.staged[id]; ok {
		return d.Bounds, true
	}
	return util.AABB{}, false
}

// SubParts retorna as sub-partes de um setup (nil para malhas simples).
func (c *Cache) SubParts(id MeshID) []SubPart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[id]; ok {
		return e.subParts
	}
	if d, ok := c.staged[id]; ok {
		return d.SubParts
	}
	return nil
}

// Prepare resolve e deixa a malha pronta para upload. Idempotente:
// chamadas concorrentes para o mesmo id compartilham uma única resolução
// (singleflight). Para setups, as sub-partes também são preparadas.
func (c *Cache) Prepare(ctx context.Context, id MeshID) error {
	if c.Ready(id) {
		return nil
	}

	_, err, _ := c.group.Do(id.String(), func() (any, error) {
		if c.Ready(id) {
			return nil, nil
		}

		data, err := c.source.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, fmt.Errorf("fonte não conhece a malha %s", id)
		}

		// Sub-partes primeiro, para que o upload do setup nunca espere.
		for _, sp := range data.SubParts {
			if err := c.Prepare(ctx, sp.ID); err != nil {
				return nil, fmt.Errorf("sub-parte %s: %w", sp.ID, err)
			}
		}

		if data.Bounds == (util.AABB{}) {
			data.Bounds = c.computeBounds(data)
		}

		c.mu.Lock()
		c.staged[id] = data
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// computeBounds deriva o volume local quando a fonte não o forneceu.
func (c *Cache) computeBounds(data *MeshData) util.AABB {
	if len(data.SubParts) > 0 {
		var box util.AABB
		first := true
		for _, sp := range data.SubParts {
			sub, ok := c.Bounds(sp.ID)
			if !ok {
				continue
			}
			sub = sub.Transform(sp.Transform)
			if first {
				box = sub
				first = false
			} else {
				box = box.Merge(sub)
			}
		}
		return box
	}

	var box util.AABB
	for i := 0; i+2 < len(data.Geometry.Vertices); i += 3 {
		v := util.Vector3{
			X: data.Geometry.Vertices[i],
			Y: data.Geometry.Vertices[i+1],
			Z: data.Geometry.Vertices[i+2],
		}
		if i == 0 {
			box = util.AABB{Min: v, Max: v}
			continue
		}
		box = box.Merge(util.AABB{Min: v, Max: v})
	}
	return box
}

// EnsureUploaded garante a residência da malha na GPU. Exclusivo da
// thread de render. Reutiliza uploads anteriores: nunca duplica.
func (c *Cache) EnsureUploaded(id MeshID) error {
	c.mu.RLock()
	_, uploaded := c.entries[id]
	data := c.staged[id]
	c.mu.RUnlock()

	if uploaded {
		return nil
	}
	if data == nil {
		return fmt.Errorf("malha %s não preparada", id)
	}

	// Setups não têm geometria própria: garantimos as sub-partes e
	// seguramos uma referência de cada uma em nome do setup.
	e := &entry{bounds: data.Bounds, subParts: data.SubParts}
	if len(data.SubParts) > 0 {
		for _, sp := range data.SubParts {
			if err := c.EnsureUploaded(sp.ID); err != nil {
				return fmt.Errorf("sub-parte %s: %w", sp.ID, err)
			}
		}
		for _, sp := range data.SubParts {
			c.Acquire(sp.ID)
		}
	} else {
		h, err := c.device.Upload(data)
		if err != nil {
			return fmt.Errorf("upload da malha %s: %w", id, err)
		}
		e.handle = h
	}

	c.mu.Lock()
	c.entries[id] = e
	delete(c.staged, id)
	c.mu.Unlock()
	return nil
}

// Acquire incrementa a contagem de referências da malha.
// Exclusivo da thread de render.
func (c *Cache) Acquire(id MeshID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		log.Printf("[Cache] Acquire em malha não residente: %s", id)
		return
	}
	e.refCount++
}

// Release decrementa a contagem e destrói o recurso ao chegar a zero.
// Exclusivo da thread de render.
func (c *Cache) Release(id MeshID) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		log.Printf("[Cache] Release em malha não residente: %s", id)
		return
	}
	if e.refCount == 0 {
		c.mu.Unlock()
		log.Printf("[Cache] Release além de zero: %s", id)
		return
	}
	e.refCount--
	dead := e.refCount == 0
	if dead {
		delete(c.entries, id)
	}
	c.mu.Unlock()

	if !dead {
		return
	}

	if e.handle != nil {
		c.device.Release(e.handle)
	}
	// O setup devolve as referências que segurava das sub-partes.
	for _, sp := range e.subParts {
		c.Release(sp.ID)
	}
}

// DropUnreferenced destrói uma malha residente que nunca foi adquirida.
// O processador de uploads usa isso ao desfazer um commit que falhou
// entre a residência e a aquisição; entradas com referências vivas não
// são tocadas. Exclusivo da thread de render.
func (c *Cache) DropUnreferenced(id MeshID) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.refCount > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.entries, id)
	c.mu.Unlock()

	if e.handle != nil {
		c.device.Release(e.handle)
	}
	// O setup devolve as referências que segurava das sub-partes.
	for _, sp := range e.subParts {
		c.Release(sp.ID)
	}
}

// RefCount retorna a contagem atual (0 se não residente). Para testes e HUD.
func (c *Cache) RefCount(id MeshID) uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[id]; ok {
		return e.refCount
	}
	return 0
}

// Handle retorna o recurso de GPU de uma malha residente.
func (c *Cache) Handle(id MeshID) (Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[id]; ok {
		return e.handle, true
	}
	return nil, false
}

// ResidentCount retorna o número de malhas residentes. Para a HUD.
func (c *Cache) ResidentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
