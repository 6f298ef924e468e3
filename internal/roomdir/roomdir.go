// Package roomdir 读取房间目录文件（YAML），为房间同步提供类型、坐标、容量等信息。
package roomdir

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
)

// Coordinates 房间中心点坐标（WGS84）
type Coordinates struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Entry 目录中的一个房间
type Entry struct {
	Name        string       `yaml:"name"`
	Type        string       `yaml:"type"`
	Link        string       `yaml:"link"`
	Coordinates *Coordinates `yaml:"coordinates"`
	Capacity    *int         `yaml:"capacity"`
	Level       string       `yaml:"level"`
}

type file struct {
	Rooms []Entry `yaml:"rooms"`
}

// Directory 按房间名索引的目录
type Directory struct {
	entries map[string]Entry
	order   []string
}

// Load 读取目录文件；path 为空时返回空目录
func Load(path string) (*Directory, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取房间目录失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析目录内容
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析房间目录失败: %w", err)
	}
	for i, e := range f.Rooms {
		if normalize.Token(e.Name) == "" {
			return nil, fmt.Errorf("房间目录第 %d 项缺少 name", i+1)
		}
	}
	return New(f.Rooms), nil
}

// New 由条目构造目录；同名条目后者覆盖前者
func New(entries []Entry) *Directory {
	d := &Directory{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		e.Name = normalize.Token(e.Name)
		if _, dup := d.entries[e.Name]; !dup {
			d.order = append(d.order, e.Name)
		}
		d.entries[e.Name] = e
	}
	return d
}

// Lookup 按房间名查找
func (d *Directory) Lookup(name string) (Entry, bool) {
	e, ok := d.entries[normalize.Token(name)]
	return e, ok
}

// Names 目录中的全部房间名（文件顺序）
func (d *Directory) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len 房间数
func (d *Directory) Len() int { return len(d.entries) }
