// Package catalog хранит список таблиц открытой базы и выбранную таблицу
package catalog

import (
	"fmt"

	"github.com/ruslano69/tdtp-editor/pkg/core/table"
)

// NoSelection - индекс "ничего не выбрано"
const NoSelection = -1

// Catalog - упорядоченный список имен таблиц + курсор выбора
type Catalog struct {
	names    []string
	selected int
}

// Build создает каталог в порядке, в котором база перечислила таблицы
// Построение не выбирает таблицу: выбор и отображение делает вызывающий
func Build(names []string) *Catalog {
	c := &Catalog{selected: NoSelection}
	c.names = append(make([]string, 0, len(names)), names...)
	return c
}

// Names возвращает копию списка имен
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Len возвращает количество таблиц
func (c *Catalog) Len() int {
	return len(c.names)
}

// Selected возвращает выбранный индекс или NoSelection
func (c *Catalog) Selected() int {
	return c.selected
}

// SelectedName возвращает имя выбранной таблицы
func (c *Catalog) SelectedName() (string, bool) {
	if c.selected == NoSelection {
		return "", false
	}
	return c.names[c.selected], true
}

// Name возвращает имя таблицы по индексу, не меняя выбор
func (c *Catalog) Name(index int) (string, error) {
	if index < 0 || index >= len(c.names) {
		return "", fmt.Errorf("%w: table %d of %d", table.ErrIndexOutOfRange, index, len(c.names))
	}
	return c.names[index], nil
}

// Select выбирает таблицу по индексу и возвращает ее имя
// NoSelection оставляет каталог без изменений и возвращает пустое имя
func (c *Catalog) Select(index int) (string, error) {
	if index == NoSelection {
		return "", nil
	}
	name, err := c.Name(index)
	if err != nil {
		return "", err
	}
	c.selected = index
	return name, nil
}

// IndexOf ищет таблицу по имени
func (c *Catalog) IndexOf(name string) (int, bool) {
	for i, n := range c.names {
		if n == name {
			return i, true
		}
	}
	return NoSelection, false
}

// Clear очищает список и сбрасывает выбор
func (c *Catalog) Clear() {
	c.names = nil
	c.selected = NoSelection
}
