package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"

	"gopkg.in/yaml.v3"
)

const (
	envAddressPrefix = "HEXAPOD_IPADDRESS_"
	envPortPrefix    = "HEXAPOD_IPPORT_"
)

// DeviceFile - содержимое файла со списком гексаподов.
type DeviceFile struct {
	Connections []models.DeviceConnection `json:"connections" yaml:"connections"`
}

// Devices - упорядоченный список настроенных устройств.
type Devices struct {
	list []models.DeviceConnection
}

// NewDevices создает список из готовых подключений.
func NewDevices(list []models.DeviceConnection) *Devices {
	cp := make([]models.DeviceConnection, len(list))
	copy(cp, list)
	return &Devices{list: cp}
}

// All возвращает копию списка в порядке файла.
func (d *Devices) All() []models.DeviceConnection {
	cp := make([]models.DeviceConnection, len(d.list))
	copy(cp, d.list)
	return cp
}

// Find ищет устройство по имени без учета регистра.
func (d *Devices) Find(name string) (models.DeviceConnection, bool) {
	return FindDevice(d.list, name)
}

// FindDevice ищет устройство по имени без учета регистра.
func FindDevice(list []models.DeviceConnection, name string) (models.DeviceConnection, bool) {
	key := models.NameKey(name)
	for _, c := range list {
		if c.Key() == key {
			return c, true
		}
	}
	return models.DeviceConnection{}, false
}

// ProvideDevices загружает список устройств по пути из конфигурации.
func ProvideDevices(cfg *AppConfig, logger *logging.Logger) (*Devices, error) {
	list, err := LoadDevices(cfg.Hexapod.DevicesFile, logger)
	if err != nil {
		return nil, err
	}
	return NewDevices(list), nil
}

// LoadDevices читает список устройств из JSON или YAML файла.
// Отсутствующий файл создается со списком по умолчанию; некорректный или пустой
// список заменяется списком по умолчанию без перезаписи файла.
func LoadDevices(path string, logger *logging.Logger) ([]models.DeviceConnection, error) {
	log := logger.WithPrefix("CONFIG")

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultDevices()
		log.Warn("Devices file not found, writing defaults", "path", path, "count", len(defaults))
		if err := SaveDevices(path, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read devices file %s: %w", path, err)
	}

	var file DeviceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		log.Error("Devices file is malformed, using defaults", "path", path, "error", err)
		return DefaultDevices(), nil
	}
	if err := ValidateDevices(file.Connections); err != nil {
		log.Warn("Invalid or empty devices list, using defaults", "path", path, "error", err)
		return DefaultDevices(), nil
	}

	log.Info("Devices loaded", "path", path, "count", len(file.Connections))
	return file.Connections, nil
}

// SaveDevices записывает список в формате, определяемом расширением файла.
func SaveDevices(path string, list []models.DeviceConnection) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
	}

	file := DeviceFile{Connections: list}
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(file)
	default:
		data, err = json.MarshalIndent(file, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write devices file %s: %w", path, err)
	}
	return nil
}

// ValidateDevices проверяет, что список непуст, каждая запись корректна, а имена уникальны.
func ValidateDevices(list []models.DeviceConnection) error {
	if len(list) == 0 {
		return errors.New("devices list is empty")
	}
	seen := make(map[string]struct{}, len(list))
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Key()]; dup {
			return fmt.Errorf("duplicate device name %q", c.Name)
		}
		seen[c.Key()] = struct{}{}
	}
	return nil
}

// DefaultDevices строит список из пар HEXAPOD_IPADDRESS_<ID> / HEXAPOD_IPPORT_<ID>.
// Без таких пар возвращается единственное устройство Hex1.
func DefaultDevices() []models.DeviceConnection {
	var list []models.DeviceConnection
	for _, kv := range os.Environ() {
		key, address, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(key), envAddressPrefix) {
			continue
		}
		id := key[len(envAddressPrefix):]
		if id == "" || strings.TrimSpace(address) == "" {
			continue
		}
		port, err := strconv.Atoi(os.Getenv(envPortPrefix + id))
		if err != nil {
			continue
		}
		conn := models.DeviceConnection{Name: id, Address: strings.TrimSpace(address), Port: port}
		if conn.Validate() == nil {
			list = append(list, conn)
		}
	}

	if len(list) == 0 {
		return []models.DeviceConnection{{Name: "Hex1", Address: "192.168.1.10", Port: 50000}}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
