package util

import "sync"

// UniqueQueue é uma coleção thread-safe que garante no máximo uma entrada
// por chave. É usada como conjunto de pendências do streaming: o escalonador
// varre as entradas para escolher a de menor prioridade e a remove antes de
// despachar, garantindo exclusividade por célula.
type UniqueQueue[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

// NewUniqueQueue cria uma nova UniqueQueue.
func NewUniqueQueue[K comparable, V any]() *UniqueQueue[K, V] {
	return &UniqueQueue[K, V]{
		items: make(map[K]V, 64),
	}
}

// Enqueue adiciona ou atualiza uma entrada.
// Retorna true se a chave era nova.
func (q *UniqueQueue[K, V]) Enqueue(key K, value V) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, existed := q.items[key]
	q.items[key] = value
	return !existed
}

// Remove retira uma entrada pela chave. Retorna o valor e true se existia.
func (q *UniqueQueue[K, V]) Remove(key K) (V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.items[key]
	if ok {
		delete(q.items, key)
	}
	return v, ok
}

// Contains verifica se uma chave está presente.
func (q *UniqueQueue[K, V]) Contains(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.items[key]
	return ok
}

// Each percorre as entradas sob o lock. A função não deve modificar a fila.
func (q *UniqueQueue[K, V]) Each(fn func(key K, value V)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, v := range q.items {
		fn(k, v)
	}
}

// Len retorna o número de entradas.
func (q *UniqueQueue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear esvazia a fila.
func (q *UniqueQueue[K, V]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make(map[K]V, 64)
}

// ThreadSafeQueue é uma fila FIFO simples e thread-safe.
// Usada como fila de upload entre os jobs de geração e a thread de render.
type ThreadSafeQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewThreadSafeQueue cria uma nova fila thread-safe.
func NewThreadSafeQueue[T any]() *ThreadSafeQueue[T] {
	return &ThreadSafeQueue[T]{
		items: make([]T, 0, 64),
	}
}

// Push adiciona um item ao fim da fila.
func (q *ThreadSafeQueue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Pop remove e retorna o primeiro item. Retorna false se vazia.
func (q *ThreadSafeQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len retorna o tamanho da fila.
func (q *ThreadSafeQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
