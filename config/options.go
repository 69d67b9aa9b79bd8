// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Options is the options bag from which a client is built.
//
// Durations may be given as strings ("1.5s", "250ms") or as plain
// numbers, which are read as seconds.
type Options struct {
	// Proxy is a single proxy endpoint, "host:port" or a URL such as
	// "socks5://host:port".
	Proxy string `koanf:"proxy"`
	// Proxies is a list of endpoints, rotated through in order after
	// Proxy.
	Proxies []string `koanf:"proxies"`
	// ProxyFile names a proxy list file. It excludes Proxy and
	// Proxies.
	ProxyFile string `koanf:"proxyFile" validate:"omitempty,file"`
	// ProxyRate, if positive, bounds proxy fetches per second across
	// every request made through the client.
	ProxyRate float64 `koanf:"proxyRate" validate:"gte=0"`
	// ProxyBurst is the burst allowed above ProxyRate.
	ProxyBurst int `koanf:"proxyBurst" validate:"gte=0"`
	// ConnectAttempts is the number of attempts made on each proxy.
	ConnectAttempts int `koanf:"connectAttempts" validate:"gte=1"`
	// ConnectSleep is the wait before each retry or rotation.
	ConnectSleep time.Duration `koanf:"connectSleep" validate:"gte=0"`
	// MaxProxyChanges is the number of times a request may move to a
	// fresh proxy.
	MaxProxyChanges int `koanf:"maxProxyChanges" validate:"gte=0"`
	// BaseURI overrides the base against which relative redirects are
	// resolved.
	BaseURI string `koanf:"baseUri" validate:"omitempty,url"`
	// Timeout is the per-attempt timeout. Zero means the client
	// default.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
	// Headers are default request headers.
	Headers map[string]string `koanf:"headers"`
	// Query holds default query parameters.
	Query map[string]string `koanf:"query"`
	// Cookies seed the client cookie jar.
	Cookies []Cookie `koanf:"cookies" validate:"dive"`
	// Log configures the client logger.
	Log LogOptions `koanf:"log"`
}

// A Cookie is an initial cookie for the jar.
type Cookie struct {
	Name     string    `koanf:"name" validate:"required"`
	Value    string    `koanf:"value"`
	Domain   string    `koanf:"domain" validate:"required"`
	Path     string    `koanf:"path"`
	Expires  time.Time `koanf:"expires"`
	Secure   bool      `koanf:"secure"`
	HTTPOnly bool      `koanf:"httpOnly"`
}

// LogOptions configures logging.
type LogOptions struct {
	// Level is a zerolog level name.
	Level string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	// Pretty selects human readable console output instead of JSON.
	Pretty bool `koanf:"pretty"`
}

// HasProxy reports whether any proxy is configured.
func (o *Options) HasProxy() bool {
	return o.Proxy != "" || len(o.Proxies) > 0 || o.ProxyFile != ""
}

var directDefaults = map[string]interface{}{
	"connectAttempts": 1,
	"connectSleep":    "0s",
	"maxProxyChanges": 0,
	"log.level":       "info",
	"log.pretty":      false,
}

var proxiedDefaults = map[string]interface{}{
	"connectAttempts": 3,
	"connectSleep":    "5s",
	"maxProxyChanges": 10,
	"log.level":       "info",
	"log.pretty":      false,
}

var proxyKeys = []string{"proxy", "proxies", "proxyFile"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load builds validated Options from a map of option keys. Nested
// keys may be given either as nested maps or joined with dots, for
// example "log.level".
func Load(m map[string]interface{}) (*Options, error) {
	return LoadLayered("", m)
}

// LoadFile builds validated Options from a YAML file.
func LoadFile(path string) (*Options, error) {
	return LoadLayered(path, nil)
}

// LoadLayered builds validated Options from a YAML file overlaid with
// the keys in m. Either may be omitted by passing "" or nil. Maps are
// merged key by key; any other value in m replaces the file's value.
func LoadLayered(path string, m map[string]interface{}) (*Options, error) {
	user := koanf.New(".")
	if path != "" {
		if err := user.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &Error{Err: err}
		}
	}
	if m != nil {
		if err := user.Load(confmap.Provider(m, "."), nil); err != nil {
			return nil, &Error{Err: err}
		}
	}
	return finish(user)
}

func finish(user *koanf.Koanf) (*Options, error) {
	defaults := directDefaults
	for _, key := range proxyKeys {
		if user.Exists(key) {
			defaults = proxiedDefaults
			break
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, &Error{Err: err}
	}
	if err := k.Merge(user); err != nil {
		return nil, &Error{Err: err}
	}

	var o Options
	err := k.UnmarshalWithConf("", &o, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				secondsHook,
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToTimeHookFunc(time.RFC3339),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &o,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, &Error{Err: err}
	}

	if err := Validate(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Validate checks o, returning one *Error per invalid option.
func Validate(o *Options) error {
	if err := validate.Struct(o); err != nil {
		return validationErrors(err)
	}
	if o.ProxyFile != "" && (o.Proxy != "" || len(o.Proxies) > 0) {
		return &Error{Key: "proxyFile", Err: ErrConflictingProxies}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsHook reads plain numbers as seconds when decoding durations.
func secondsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	v := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(v.Int()) * time.Second, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Duration(v.Uint()) * time.Second, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(v.Float() * float64(time.Second)), nil
	default:
		return data, nil
	}
}
