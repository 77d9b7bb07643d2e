// pkg/snapraid/diff_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test the backward scan over diff summary output

package snapraid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDiff(t *testing.T) {
	tests := []struct {
		name   string
		output string
		dryRun bool
		want   DiffResult
	}{
		{
			name: "both_counts_found",
			output: "Comparing...\n" +
				"remove file1\n" +
				"update file2\n" +
				"\n" +
				"   7 removed\n" +
				"   3 updated\n",
			want: DiffResult{Removed: 7, Updated: 3, RemovedSeen: true, UpdatedSeen: true},
		},
		{
			name: "unspecified_order",
			output: "   3 updated\n" +
				"   7 removed\n",
			want: DiffResult{Removed: 7, Updated: 3, RemovedSeen: true, UpdatedSeen: true},
		},
		{
			name: "last_occurrence_wins",
			output: "   1 removed\n" +
				"   2 updated\n" +
				"summary:\n" +
				"  12 removed\n" +
				"  34 updated\n",
			want: DiffResult{Removed: 12, Updated: 34, RemovedSeen: true, UpdatedSeen: true},
		},
		{
			name: "unrelated_numeric_lines_ignored",
			output: "  99 equal\n" +
				"   5 added\n" +
				"   7 removed\n" +
				"   0 updated\n",
			want: DiffResult{Removed: 7, Updated: 0, RemovedSeen: true, UpdatedSeen: true},
		},
		{
			name:   "no_output_real_run_yields_empty_result",
			output: "",
			want:   DiffResult{},
		},
		{
			name:   "no_output_dry_run_defaults_to_zero",
			output: "",
			dryRun: true,
			want:   DiffResult{RemovedSeen: true, UpdatedSeen: true},
		},
		{
			name: "only_removed_present",
			output: "   4 removed\n" +
				"done\n",
			want: DiffResult{Removed: 4, RemovedSeen: true},
		},
		{
			name:   "counts_need_leading_whitespace",
			output: "7 removed\n3 updated\n",
			want:   DiffResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDiff(tt.output, tt.dryRun))
		})
	}
}
