package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"

	"gopkg.in/yaml.v3"
)

// ProvideChannels загружает каталог каналов по пути из конфигурации.
func ProvideChannels(cfg *AppConfig, logger *logging.Logger) ([]models.ChannelSpec, error) {
	return LoadChannels(cfg.Hexapod.ChannelsFile, logger)
}

// LoadChannels читает каталог "имя -> {Id, Unit, Target}" из JSON или YAML файла.
// Каналы упорядочиваются по Id, затем по имени.
func LoadChannels(path string, logger *logging.Logger) ([]models.ChannelSpec, error) {
	log := logger.WithPrefix("CONFIG")

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultChannels()
		log.Warn("Channels file not found, writing defaults", "path", path, "count", len(defaults))
		if err := SaveChannels(path, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read channels file %s: %w", path, err)
	}

	var raw map[string]models.ChannelSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse channels file %s: %w", path, err)
	}
	if len(raw) == 0 {
		log.Warn("Channels file is empty, using defaults", "path", path)
		return DefaultChannels(), nil
	}

	specs := make([]models.ChannelSpec, 0, len(raw))
	for name, spec := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("channels file %s: empty channel name", path)
		}
		spec.Name = name
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].ID != specs[j].ID {
			return specs[i].ID < specs[j].ID
		}
		return specs[i].Name < specs[j].Name
	})

	log.Info("Channels loaded", "path", path, "count", len(specs))
	return specs, nil
}

// SaveChannels записывает каталог в формате, определяемом расширением файла.
func SaveChannels(path string, specs []models.ChannelSpec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	raw := make(map[string]models.ChannelSpec, len(specs))
	for _, s := range specs {
		raw[s.Name] = s
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(raw)
	default:
		data, err = json.MarshalIndent(raw, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode channels: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write channels file %s: %w", path, err)
	}
	return nil
}

// DefaultChannels - аналоговые входы контроллера и позиции по осям.
func DefaultChannels() []models.ChannelSpec {
	specs := []models.ChannelSpec{
		{ID: 5, Name: models.ChannelAnalog5, Unit: "V"},
		{ID: 6, Name: models.ChannelAnalog6, Unit: "V"},
	}
	for i := 0; i < models.AxisCount; i++ {
		axis := models.Axis(i)
		specs = append(specs, models.ChannelSpec{ID: 10 + i, Name: models.PositionChannel(axis), Unit: "mm"})
	}
	return specs
}
