package results

import (
	"fmt"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

// SaveJSON writes the outcomes as a JSON dump to path.
func SaveJSON(path string, outcomes []types.Outcome) error {
	data, err := MarshalOutcomes(outcomes)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return har.WriteFile(path, data)
}

// SaveArchive writes the outcomes as a HAR archive to path.
func SaveArchive(path string, outcomes []types.Outcome) error {
	return har.Save(BuildArchive(outcomes), path)
}

// SaveReport writes the plain-text report to path.
func SaveReport(path string, outcomes []types.Outcome) error {
	return har.WriteFile(path, []byte(Report(outcomes)))
}
