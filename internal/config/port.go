package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Port is the listen port of the server. Config files may write it as a number or a string.
type Port string

func (p Port) String() string {
	return string(p)
}

// Number returns the numeric port, or an error when it is not between 1 and 65535.
func (p Port) Number() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(p)))
	if err != nil {
		return 0, fmt.Errorf("port must be numeric, got %q", string(p))
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", n)
	}
	return n, nil
}

func (p Port) Validate() error {
	_, err := p.Number()
	return err
}

func portFromValue(data any) (Port, error) {
	switch v := data.(type) {
	case string:
		return Port(strings.TrimSpace(v)), nil
	case int:
		return Port(strconv.Itoa(v)), nil
	case int64:
		return Port(strconv.FormatInt(v, 10)), nil
	case uint64:
		return Port(strconv.FormatUint(v, 10)), nil
	case float64:
		// JSON numbers arrive as floats
		if v != float64(int(v)) {
			return "", fmt.Errorf("port must be an integer, got %v", v)
		}
		return Port(strconv.Itoa(int(v))), nil
	default:
		return "", fmt.Errorf("port must be a string or integer, got %T", data)
	}
}

// PortDecodeHook lets mapstructure decode numeric and string ports into Port.
func PortDecodeHook() mapstructure.DecodeHookFuncType {
	portType := reflect.TypeOf(Port(""))
	return func(_ reflect.Type, t reflect.Type, data any) (any, error) {
		if t != portType {
			return data, nil
		}
		return portFromValue(data)
	}
}
