package presentation

import "sync"

// AssetKind separates the handle namespaces.
type AssetKind uint8

const (
	AssetShader AssetKind = iota
	AssetSound
	AssetModel
)

// AssetTable hands out stable handles for asset names. Registering the
// same name twice returns the first handle. Handle 0 is never issued so it
// can stand for "none".
type AssetTable struct {
	mu      sync.Mutex
	handles [3]map[string]int
	names   [3][]string
}

// NewAssetTable returns an empty table.
func NewAssetTable() *AssetTable {
	t := &AssetTable{}
	for i := range t.handles {
		t.handles[i] = make(map[string]int)
		t.names[i] = []string{""}
	}
	return t
}

// Register returns the handle for name, allocating one if needed.
func (t *AssetTable) Register(kind AssetKind, name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.handles[kind][name]; ok {
		return h
	}
	h := len(t.names[kind])
	t.names[kind] = append(t.names[kind], name)
	t.handles[kind][name] = h
	return h
}

// RegisterShader is Register(AssetShader, name).
func (t *AssetTable) RegisterShader(name string) int { return t.Register(AssetShader, name) }

// RegisterSound is Register(AssetSound, name).
func (t *AssetTable) RegisterSound(name string) int { return t.Register(AssetSound, name) }

// Name returns the name behind a handle, or "" for unknown handles.
func (t *AssetTable) Name(kind AssetKind, handle int) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if handle <= 0 || handle >= len(t.names[kind]) {
		return ""
	}
	return t.names[kind][handle]
}

// Len returns how many names of kind are registered.
func (t *AssetTable) Len(kind AssetKind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names[kind]) - 1
}
