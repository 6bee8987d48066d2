package costmap

import (
	"bufio"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SaveMap writes the raster as a plain-text grayscale image: "P2", the width,
// the height and the max value 255 on their own lines, then one line of
// space separated costs per row, first row first.
func (g *Grid) SaveMap(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := "P2\n" + strconv.Itoa(g.sizeX) + "\n" + strconv.Itoa(g.sizeY) + "\n255\n"
	if _, err := bw.WriteString(header); err != nil {
		return errors.Wrap(err, "writing map header")
	}
	line := make([]byte, 0, g.sizeX*4)
	for my := 0; my < g.sizeY; my++ {
		line = line[:0]
		row := g.costs[my*g.sizeX : (my+1)*g.sizeX]
		for i, cost := range row {
			if i > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendUint(line, uint64(cost), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return errors.Wrapf(err, "writing map row %d", my)
		}
	}
	return bw.Flush()
}

// MapMetadata is the map_server style description that accompanies a saved
// map image.
type MapMetadata struct {
	Image          string    `yaml:"image"`
	Resolution     float64   `yaml:"resolution"`
	Origin         []float64 `yaml:"origin"`
	Negate         int       `yaml:"negate"`
	OccupiedThresh float64   `yaml:"occupied_thresh"`
	FreeThresh     float64   `yaml:"free_thresh"`
	SnapshotID     string    `yaml:"snapshot_id"`
	Width          int       `yaml:"width"`
	Height         int       `yaml:"height"`
}

// Metadata describes the grid for a map image stored at imagePath. Each call
// gets a fresh snapshot id.
func (g *Grid) Metadata(imagePath string) MapMetadata {
	return MapMetadata{
		Image:          imagePath,
		Resolution:     g.resolution,
		Origin:         []float64{g.originX, g.originY, 0},
		OccupiedThresh: 0.65,
		FreeThresh:     0.196,
		SnapshotID:     uuid.NewString(),
		Width:          g.sizeX,
		Height:         g.sizeY,
	}
}

// SaveMapMetadata writes the YAML metadata for a map image stored at imagePath.
func (g *Grid) SaveMapMetadata(w io.Writer, imagePath string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(g.Metadata(imagePath)); err != nil {
		return errors.Wrap(err, "encoding map metadata")
	}
	return enc.Close()
}
