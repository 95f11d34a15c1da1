package channel

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrConnectionNotLive 表示连接不存在或已断开。
var ErrConnectionNotLive = errors.New("connection is not live")

// ConnectionManager 跟踪当前在线的 websocket 连接。
type ConnectionManager struct {
	connections map[string]*websocket.Conn
	mu          sync.RWMutex
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
	}
}

// AddConnection 添加连接
func (cm *ConnectionManager) AddConnection(connectionID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// 如果已存在连接，先关闭旧连接
	if oldConn, exists := cm.connections[connectionID]; exists {
		oldConn.Close()
	}

	cm.connections[connectionID] = conn
}

// Has reports whether connectionID is live.
func (cm *ConnectionManager) Has(connectionID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	_, exists := cm.connections[connectionID]
	return exists
}

// WithLive runs fn while holding the connection live. RemoveConnection waits for fn to return,
// so state created by fn is always visible to the disconnect cleanup.
func (cm *ConnectionManager) WithLive(connectionID string, fn func() error) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if _, exists := cm.connections[connectionID]; !exists {
		return ErrConnectionNotLive
	}
	return fn()
}

// RemoveConnection 移除连接
func (cm *ConnectionManager) RemoveConnection(connectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn, exists := cm.connections[connectionID]; exists {
		conn.Close()
		delete(cm.connections, connectionID)
	}
}

// CloseAll 关闭所有连接
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for connectionID, conn := range cm.connections {
		conn.Close()
		delete(cm.connections, connectionID)
	}
}

// Len returns the number of live connections.
func (cm *ConnectionManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}
