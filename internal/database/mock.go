package database

import (
	"context"
	"sync"
)

// MockDriver implements Driver in memory for testing and example purposes
type MockDriver struct {
	mu            sync.Mutex
	connectErr    error
	databaseErr   error
	collectionErr error
	disconnectErr error
	gate          chan struct{}
	closeGate     chan struct{}

	connects    int
	disconnects int
	lastAddress string
}

// NewMockDriver creates a mock driver whose operations all succeed
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

// SetConnectError makes Connect fail with err
func (m *MockDriver) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// SetDatabaseError makes Client.Database fail with err
func (m *MockDriver) SetDatabaseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.databaseErr = err
}

// SetCollectionError makes Database.Collection fail with err
func (m *MockDriver) SetCollectionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collectionErr = err
}

// SetDisconnectError makes Client.Disconnect fail with err
func (m *MockDriver) SetDisconnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectErr = err
}

// Hold makes Connect block until Release is called
func (m *MockDriver) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// HoldDisconnect makes Client.Disconnect block until Release is called
func (m *MockDriver) HoldDisconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeGate = make(chan struct{})
}

// Release unblocks a held Connect or Disconnect
func (m *MockDriver) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
	if m.closeGate != nil {
		close(m.closeGate)
		m.closeGate = nil
	}
}

// Connects returns how many times Connect was called
func (m *MockDriver) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// Disconnects returns how many times Disconnect was called
func (m *MockDriver) Disconnects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnects
}

// LastAddress returns the address passed to the last Connect
func (m *MockDriver) LastAddress() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAddress
}

// Connect returns a mock client, or the configured error
func (m *MockDriver) Connect(ctx context.Context, address string) (Client, error) {
	m.mu.Lock()
	m.connects++
	m.lastAddress = address
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return &mockClient{driver: m}, nil
}

type mockClient struct {
	driver *MockDriver
}

func (c *mockClient) Database(ctx context.Context, name string) (Database, error) {
	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	if c.driver.databaseErr != nil {
		return nil, c.driver.databaseErr
	}
	return &mockDatabase{driver: c.driver, name: name}, nil
}

func (c *mockClient) Disconnect(ctx context.Context) error {
	c.driver.mu.Lock()
	c.driver.disconnects++
	gate := c.driver.closeGate
	c.driver.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	return c.driver.disconnectErr
}

type mockDatabase struct {
	driver *MockDriver
	name   string
}

func (d *mockDatabase) Collection(ctx context.Context, name string) (Collection, error) {
	d.driver.mu.Lock()
	defer d.driver.mu.Unlock()
	if d.driver.collectionErr != nil {
		return nil, d.driver.collectionErr
	}
	return &MockCollection{Database: d.name, CollectionName: name}, nil
}

// MockCollection is the collection handle returned by MockDriver
type MockCollection struct {
	Database       string
	CollectionName string
}

// Name returns the collection name
func (c *MockCollection) Name() string {
	return c.CollectionName
}
