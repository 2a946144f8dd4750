package market

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type marketsFile struct {
	Markets []*Market `yaml:"markets"`
}

// LoadRegistry 从 yaml 文件加载市场列表
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markets file %s: %w", path, err)
	}
	return ParseRegistry(raw)
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var f marketsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode markets yaml: %w", err)
	}
	reg := NewRegistry()
	for i, m := range f.Markets {
		if m == nil {
			return nil, fmt.Errorf("%w: entry %d is empty", ErrInvalidMarket, i)
		}
		if err := reg.Add(m); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
