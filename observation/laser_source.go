package observation

import (
	"context"

	"go.viam.com/costmap/logging"
)

func init() {
	RegisterDataType(DataTypeLaserScan, func(
		ctx context.Context,
		name string,
		attributes map[string]interface{},
		logger logging.Logger,
	) (Source, error) {
		attrs, err := DecodeAttributes[CloudAttributes](attributes)
		if err != nil {
			return nil, err
		}
		return NewLaserSource(name, attrs, logger), nil
	})
}

// A LaserSource projects planar scans into world-frame clouds.
type LaserSource struct {
	*CloudSource
}

// NewLaserSource returns an open laser source.
func NewLaserSource(name string, attrs CloudAttributes, logger logging.Logger) *LaserSource {
	return &LaserSource{CloudSource: NewCloudSource(name, DataTypeLaserScan, attrs, logger)}
}

// PublishScan projects a scan taken from pose and hands it to the source.
func (s *LaserSource) PublishScan(scan LaserScan, pose SensorPose) {
	s.Publish(pose.Origin(), scan.Project(pose))
}
