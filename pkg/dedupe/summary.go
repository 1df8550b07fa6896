package dedupe

import (
	"time"

	"github.com/autobrr/dupescan/pkg/scanerr"
)

// Summary counts what happened to every file seen by a run.
type Summary struct {
	FilesSeen     int64 `json:"files_seen" yaml:"files_seen"`
	SmallFiles    int64 `json:"small_files" yaml:"small_files"`
	YoungFiles    int64 `json:"young_files" yaml:"young_files"`
	FilteredFiles int64 `json:"filtered_files" yaml:"filtered_files"`

	HardlinkGroups    int64 `json:"hardlink_groups" yaml:"hardlink_groups"`
	HardlinkedFiles   int64 `json:"hardlinked_files" yaml:"hardlinked_files"`
	ExternalHardlinks int64 `json:"external_hardlinks" yaml:"external_hardlinks"`

	UniqueSizes           int64 `json:"unique_sizes" yaml:"unique_sizes"`
	SizeGroups            int64 `json:"size_groups" yaml:"size_groups"`
	SizeCandidates        int64 `json:"size_candidates" yaml:"size_candidates"`
	FingerprintEliminated int64 `json:"fingerprint_eliminated" yaml:"fingerprint_eliminated"`
	ContentEliminated     int64 `json:"content_eliminated" yaml:"content_eliminated"`

	Clusters        int64 `json:"clusters" yaml:"clusters"`
	DuplicatedFiles int64 `json:"duplicated_files" yaml:"duplicated_files"`
	WastedBytes     int64 `json:"wasted_bytes" yaml:"wasted_bytes"`
	BiggestWaste    int64 `json:"biggest_waste" yaml:"biggest_waste"`

	Dropped     scanerr.Counts `json:"dropped" yaml:"dropped"`
	Interrupted bool           `json:"interrupted" yaml:"interrupted"`
	Strategy    string         `json:"strategy" yaml:"strategy"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
}

func (s *Summary) addClusters(clusters []Cluster) {
	for _, c := range clusters {
		s.Clusters++
		if c.Kind != KindContent {
			continue
		}

		s.DuplicatedFiles += int64(len(c.Members))
		waste := c.Reclaimable()
		s.WastedBytes += waste
		if waste > s.BiggestWaste {
			s.BiggestWaste = waste
		}
	}
}
