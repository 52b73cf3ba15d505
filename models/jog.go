package models

import (
	"fmt"
	"sync"
)

// DefaultJogSteps - шаги толчкового перемещения панели управления, мм.
var DefaultJogSteps = []float64{0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0}

// DefaultJogStepIndex - шаг, выбранный при старте.
const DefaultJogStepIndex = 6

// MicronJogSteps - набор шагов в микронах (в мм) для точной юстировки.
var MicronJogSteps = []float64{
	0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.003, 0.004, 0.005,
	0.01, 0.02, 0.03, 0.04, 0.05, 0.1, 0.2, 0.3,
}

// JogStepCatalog - упорядоченный набор допустимых шагов с одним выбранным значением.
// Безопасен для одновременного использования.
type JogStepCatalog struct {
	mu       sync.RWMutex
	steps    []float64
	selected int
}

// NewJogStepCatalog создает каталог; пустой набор заменяется DefaultJogSteps.
func NewJogStepCatalog(steps []float64, selected int) (*JogStepCatalog, error) {
	if len(steps) == 0 {
		steps = DefaultJogSteps
	}
	for i, s := range steps {
		if s <= 0 {
			return nil, fmt.Errorf("jog step #%d must be positive, got %v", i, s)
		}
		if i > 0 && s <= steps[i-1] {
			return nil, fmt.Errorf("jog steps must be strictly increasing at #%d", i)
		}
	}
	if selected < 0 || selected >= len(steps) {
		selected = 0
	}
	cp := make([]float64, len(steps))
	copy(cp, steps)
	return &JogStepCatalog{steps: cp, selected: selected}, nil
}

// Steps возвращает копию набора шагов.
func (c *JogStepCatalog) Steps() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]float64, len(c.steps))
	copy(cp, c.steps)
	return cp
}

// Select выбирает шаг по индексу.
func (c *JogStepCatalog) Select(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.steps) {
		return fmt.Errorf("jog step index %d out of range [0, %d)", index, len(c.steps))
	}
	c.selected = index
	return nil
}

// SelectValue выбирает шаг, точно совпадающий со значением из каталога.
func (c *JogStepCatalog) SelectValue(step float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.steps {
		if s == step {
			c.selected = i
			return nil
		}
	}
	return fmt.Errorf("jog step %v is not in catalog", step)
}

// Current возвращает выбранный шаг и его индекс.
func (c *JogStepCatalog) Current() (float64, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.steps[c.selected], c.selected
}
