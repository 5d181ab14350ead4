package catalog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/player"
	"github.com/adbreak/server/pkg/validator"
)

var ErrVideoNotFound = errors.New("video not found")

// Ad is one creative in a configured pod.
type Ad struct {
	ID                string `yaml:"id" json:"id" validate:"required"`
	Title             string `yaml:"title" json:"title"`
	DurationSeconds   int    `yaml:"duration_seconds" json:"duration_seconds" validate:"required,min=1"`
	Skippable         bool   `yaml:"skippable" json:"skippable"`
	SkipOffsetSeconds int    `yaml:"skip_offset_seconds" json:"skip_offset_seconds" validate:"min=0"`
}

// Pod is an ordered ad break served for one tag URL.
type Pod struct {
	Tag string `yaml:"tag" json:"tag" validate:"required"`
	Ads []Ad   `yaml:"ads" json:"ads" validate:"required,min=1,dive"`
}

// Video is one entry of the content list.
type Video struct {
	ID              string `yaml:"id" json:"id" validate:"required"`
	Title           string `yaml:"title" json:"title" validate:"required"`
	URL             string `yaml:"url" json:"url" validate:"required"`
	DurationSeconds int    `yaml:"duration_seconds" json:"duration_seconds" validate:"required,min=1"`
	// AdTag selects the pod played before this video. Empty means the
	// ad request will find nothing and playback falls straight through
	// to content.
	AdTag string `yaml:"ad_tag" json:"ad_tag"`
}

// Source converts the entry into a content-player source.
func (v Video) Source() player.Source {
	return player.Source{
		ID:       v.ID,
		Title:    v.Title,
		URL:      v.URL,
		Duration: time.Duration(v.DurationSeconds) * time.Second,
	}
}

// Catalog is the configured set of videos and ad pods.
type Catalog struct {
	Videos []Video `yaml:"videos" validate:"dive"`
	Pods   []Pod   `yaml:"ad_pods" validate:"dive"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if validationErrors, ok := validator.NewValidator().Validate(&c); !ok {
		return nil, fmt.Errorf("invalid catalog: %+v", validationErrors)
	}

	return &c, nil
}

// Video returns the entry with the given id.
func (c *Catalog) Video(id string) (Video, error) {
	for _, v := range c.Videos {
		if v.ID == id {
			return v, nil
		}
	}
	return Video{}, fmt.Errorf("%w: %q", ErrVideoNotFound, id)
}

// List returns all entries in configured order.
func (c *Catalog) List() []Video {
	out := make([]Video, len(c.Videos))
	copy(out, c.Videos)
	return out
}

// AdPods converts the configured pods into the ad engine's shape, keyed
// by tag URL.
func (c *Catalog) AdPods() map[string][]adengine.AdMeta {
	pods := make(map[string][]adengine.AdMeta, len(c.Pods))
	for _, pod := range c.Pods {
		ads := make([]adengine.AdMeta, 0, len(pod.Ads))
		for _, ad := range pod.Ads {
			ads = append(ads, adengine.AdMeta{
				ID:         ad.ID,
				Title:      ad.Title,
				Duration:   time.Duration(ad.DurationSeconds) * time.Second,
				Skippable:  ad.Skippable,
				SkipOffset: time.Duration(ad.SkipOffsetSeconds) * time.Second,
			})
		}
		pods[pod.Tag] = ads
	}
	return pods
}
