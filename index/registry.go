package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rushteam/songrec/core"
)

// ErrNoCurrent 表示注册表中还没有发布过任何产物。
var ErrNoCurrent = core.NewDomainError(core.ModuleIndex, core.ErrorCodeNotFound, "index: no published artifact")

// Registry 记录“当前生效”的索引产物目录。发布即原子地切换指针，从不原地改写产物。
type Registry interface {
	// Publish 把 dir 设为当前产物；dir 必须是可加载的产物目录
	Publish(ctx context.Context, dir string) error
	// Resolve 返回当前产物目录
	Resolve(ctx context.Context) (string, error)
}

// FileRegistry 在 Root 下维护 CURRENT 指针文件（内容为产物目录的绝对路径）。
type FileRegistry struct {
	Root string
}

// CurrentFile 是指针文件名
const CurrentFile = "CURRENT"

func NewFileRegistry(root string) *FileRegistry {
	return &FileRegistry{Root: root}
}

func (r *FileRegistry) Publish(ctx context.Context, dir string) error {
	abs, err := checkPublishable(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.Root, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(r.Root, "."+CurrentFile+"-")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(abs + "\n"); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), filepath.Join(r.Root, CurrentFile))
}

func (r *FileRegistry) Resolve(ctx context.Context) (string, error) {
	b, err := os.ReadFile(filepath.Join(r.Root, CurrentFile))
	if os.IsNotExist(err) {
		return "", ErrNoCurrent
	}
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(string(b))
	if dir == "" {
		return "", ErrNoCurrent
	}
	return dir, nil
}

// StoreRegistry 把当前产物目录写进 core.Store，多个服务实例可共享同一个 Redis。
// 若 Store 同时实现 core.KeyValueStore，额外记录发布历史。
type StoreRegistry struct {
	store core.Store
	key   string
}

// 默认 key
const (
	DefaultCurrentKey = "songrec:index:current"
	historySuffix     = ":history"
)

func NewStoreRegistry(store core.Store, key string) *StoreRegistry {
	if key == "" {
		key = DefaultCurrentKey
	}
	return &StoreRegistry{store: store, key: key}
}

func (r *StoreRegistry) Publish(ctx context.Context, dir string) error {
	abs, err := checkPublishable(dir)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.key, []byte(abs)); err != nil {
		return err
	}
	if kv, ok := r.store.(core.KeyValueStore); ok {
		return kv.ZAdd(ctx, r.key+historySuffix, float64(time.Now().UnixMicro()), abs)
	}
	return nil
}

func (r *StoreRegistry) Resolve(ctx context.Context) (string, error) {
	b, err := r.store.Get(ctx, r.key)
	if core.IsStoreNotFound(err) {
		return "", ErrNoCurrent
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// History 返回最近发布的 n 个产物目录（新的在前）；n <= 0 返回全部。
func (r *StoreRegistry) History(ctx context.Context, n int) ([]string, error) {
	kv, ok := r.store.(core.KeyValueStore)
	if !ok {
		return nil, core.ErrStoreNotSupported
	}
	return kv.ZRange(ctx, r.key+historySuffix, 0, int64(n)-1)
}

// checkPublishable 拒绝发布版本不符或缺失的产物。
func checkPublishable(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if _, err := Inspect(abs); err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(abs, MatrixFile)); err != nil {
		return "", core.Wrap(core.ErrSchema, err, "publish %s", abs)
	}
	return abs, nil
}

var (
	_ Registry = (*FileRegistry)(nil)
	_ Registry = (*StoreRegistry)(nil)
)
