package observation

import (
	"context"

	"github.com/golang/geo/r3"

	"go.viam.com/costmap/logging"
)

func init() {
	RegisterDataType(DataTypePointCloud, newCloudConstructor(DataTypePointCloud))
	RegisterDataType(DataTypePointCloud2, newCloudConstructor(DataTypePointCloud2))
}

// CloudAttributes configures a point cloud source.
type CloudAttributes struct {
	QueueSize int `json:"queue_size"`
}

// A CloudSource is fed world-frame point clouds by a sensor driver.
type CloudSource struct {
	name     string
	dataType DataType
	feed     *feed
	logger   logging.Logger
}

func newCloudConstructor(dataType DataType) Constructor {
	return func(
		ctx context.Context,
		name string,
		attributes map[string]interface{},
		logger logging.Logger,
	) (Source, error) {
		attrs, err := DecodeAttributes[CloudAttributes](attributes)
		if err != nil {
			return nil, err
		}
		return NewCloudSource(name, dataType, attrs, logger), nil
	}
}

// NewCloudSource returns an open point cloud source.
func NewCloudSource(name string, dataType DataType, attrs CloudAttributes, logger logging.Logger) *CloudSource {
	return &CloudSource{
		name:     name,
		dataType: dataType,
		feed:     newFeed(attrs.QueueSize),
		logger:   logger,
	}
}

// Name returns the source name.
func (s *CloudSource) Name() string {
	return s.name
}

// DataType returns the source encoding.
func (s *CloudSource) DataType() DataType {
	return s.dataType
}

// Publish hands a new cloud seen from origin to the source. Publishing to a
// closed source is a no-op.
func (s *CloudSource) Publish(origin r3.Vector, points []r3.Vector) {
	if !s.feed.publish(Reading{Origin: origin, Points: points}) {
		s.logger.Debugw("dropping cloud published after close", "points", len(points))
	}
}

// NextReading returns the oldest unread cloud.
func (s *CloudSource) NextReading(ctx context.Context) (Reading, error) {
	return s.feed.next(ctx)
}

// Close stops the source; pending readers return ErrSourceClosed.
func (s *CloudSource) Close(ctx context.Context) error {
	s.feed.close()
	return nil
}
