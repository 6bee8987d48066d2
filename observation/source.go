package observation

import (
	"context"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/costmap/logging"
)

// A DataType names the native encoding a sensor source produces.
type DataType string

// The supported data types.
const (
	DataTypePointCloud  = DataType("PointCloud")
	DataTypePointCloud2 = DataType("PointCloud2")
	DataTypeLaserScan   = DataType("LaserScan")
	DataTypePCD         = DataType("PCD")
)

// A Source adapts one sensor's native output into world-frame readings.
type Source interface {
	Name() string
	DataType() DataType

	// NextReading blocks until a new reading is available, the source is
	// closed, or ctx is done.
	NextReading(ctx context.Context) (Reading, error)

	Close(ctx context.Context) error
}

// ErrSourceClosed is returned by NextReading after a source is closed.
var ErrSourceClosed = errors.New("observation source is closed")

// A Constructor builds a Source from its raw attribute map.
type Constructor func(
	ctx context.Context,
	name string,
	attributes map[string]interface{},
	logger logging.Logger,
) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[DataType]Constructor{}
)

// RegisterDataType registers the constructor for a data type. Registering a
// data type twice panics.
func RegisterDataType(dataType DataType, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[dataType]; old {
		panic(errors.Errorf("trying to register two observation sources with same data type: %q", dataType))
	}
	if constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for data type: %q", dataType))
	}
	registry[dataType] = constructor
}

// LookupDataType returns the constructor for a data type, or nil if none is registered.
func LookupDataType(dataType DataType) Constructor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[dataType]
}

// SupportedDataTypes lists every registered data type in sorted order.
func SupportedDataTypes() []DataType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := lo.Keys(registry)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// NewSource builds a source of the given data type. An unregistered data
// type is an error.
func NewSource(
	ctx context.Context,
	name string,
	dataType DataType,
	attributes map[string]interface{},
	logger logging.Logger,
) (Source, error) {
	constructor := LookupDataType(dataType)
	if constructor == nil {
		return nil, errors.Errorf(
			"only %v data types are supported, observation source %q has data type %q",
			SupportedDataTypes(), name, dataType)
	}
	src, err := constructor(ctx, name, attributes, logger.Sublogger(name))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create observation source %q", name)
	}
	return src, nil
}

// DecodeAttributes decodes a raw attribute map into a typed attribute struct
// using its json tags.
func DecodeAttributes[T any](attributes map[string]interface{}) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &out,
		ErrorUnused: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return out, errors.Wrap(err, "decoding attributes")
	}
	return out, nil
}
