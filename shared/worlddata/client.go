package worlddata

import (
	"bytes"
	"encoding/gob"
	"log"
	"sync"
	"time"

	"WorldVision/shared/util"

	"github.com/gorilla/websocket"
)

// Tipos de mensagem do feed de edição de mundo.
const (
	msgCellPush      uint8 = 1 // Servidor empurra dados novos de uma célula
	msgInvalidate    uint8 = 2 // Servidor avisa que uma região mudou
	msgRequestRegion uint8 = 3 // Cliente pede as células de uma região
	msgStatus        uint8 = 4
)

// envelope é o quadro GOB trocado com o servidor de edição.
type envelope struct {
	Type     uint8
	Cell     *CellData        // msgCellPush
	Affected []util.CellCoord // msgInvalidate; nil = tudo
	Center   util.CellCoord   // msgRequestRegion
	Radius   int32            // msgRequestRegion
	Status   string           // msgStatus
}

// Client consome o feed de edição de mundo via websocket, aplicando
// pushes e invalidações diretamente no Store.
type Client struct {
	conn      *websocket.Conn
	url       string
	store     *Store
	connected bool
	mu        sync.RWMutex

	// Callback opcional para o App exibir status na HUD
	OnStatus func(msg string)
}

// NewClient cria um cliente para o feed de edição.
func NewClient(url string, store *Store) *Client {
	return &Client{url: url, store: store}
}

// Connect tenta conectar com retry e inicia o loop de leitura.
func (c *Client) Connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	var err error
	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		log.Printf("[Rede] Tentativa de conexão %d/%d em %s...", i+1, maxRetries, c.url)
		c.conn, _, err = dialer.Dial(c.url, nil)
		if err == nil {
			break
		}
		log.Printf("[Rede] Servidor ainda não está pronto: %v. Aguardando...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Printf("[Rede] ERRO após %d tentativas: %v", maxRetries, err)
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// IsConnected informa se há conexão ativa.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// RequestRegion pede ao servidor as células num raio ao redor de center.
func (c *Client) RequestRegion(center util.CellCoord, radius int32) {
	c.send(envelope{Type: msgRequestRegion, Center: center, Radius: radius})
}

func (c *Client) send(env envelope) {
	if !c.IsConnected() {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&env); err != nil {
		log.Printf("[Rede] Falha ao codificar envelope: %v", err)
		return
	}
	c.mu.Lock()
	err := c.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
	c.mu.Unlock()
	if err != nil {
		log.Printf("[Rede] Falha de envio: %v", err)
	}
}

func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Erro no readLoop da rede: %v", r)
		}
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("[Rede] Conexão encerrada: %v", err)
			return
		}

		var env envelope
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
			log.Printf("[Rede] Envelope inválido: %v", err)
			continue
		}

		switch env.Type {
		case msgCellPush:
			if env.Cell != nil {
				c.store.Apply(env.Cell)
			}
		case msgInvalidate:
			c.store.NotifyChanged(env.Affected)
		case msgStatus:
			if c.OnStatus != nil {
				c.OnStatus(env.Status)
			}
		}
	}
}

// Close encerra a conexão.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
}
