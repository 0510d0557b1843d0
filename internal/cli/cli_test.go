package cli

import (
	"reflect"
	"testing"
)

func TestParseFrameworkRefs(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		want    map[string][]string
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{
			name:  "single mapping",
			flags: []string{"cis_aws:1.5,1.6"},
			want:  map[string][]string{"cis_aws": {"1.5", "1.6"}},
		},
		{
			name:  "repeated flags merge",
			flags: []string{"cis_aws:1.5", "nist_800_53:IA-2, AC-6"},
			want: map[string][]string{
				"cis_aws":     {"1.5"},
				"nist_800_53": {"IA-2", "AC-6"},
			},
		},
		{"missing separator", []string{"cis_aws"}, nil, true},
		{"empty name", []string{":1.5"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFrameworkRefs(tt.flags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"low", "LOW", false},
		{"HIGH", "HIGH", false},
		{"Critical", "CRITICAL", false},
		{"BOGUS", "", true},
		{"SEVERE", "", true},
	}

	for _, tt := range tests {
		got, err := parseSeverity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSeverity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSiblingPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"report.json", "report.md"},
		{"out/report.json", "out/report.md"},
		{"report", "report.md"},
		{"out.dir/report", "out.dir/report.md"},
	}

	for _, tt := range tests {
		if got := siblingPath(tt.path, ".md"); got != tt.want {
			t.Errorf("siblingPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDecodeReport(t *testing.T) {
	t.Run("full report object", func(t *testing.T) {
		rep, err := decodeReport([]byte(`{
  "scan_metadata": {"scan_id": "s1", "timestamp": "2026-03-14T09:30:00Z"},
  "summary": {"total_violations": 1, "violations_by_severity": {"high": 1},
              "violations_by_domain": {}, "violations_by_cloud": {}},
  "violations": [{"control_id": "NET-001", "severity": "HIGH",
                  "resource_address": "aws_security_group.open",
                  "message": "open ingress", "enriched": true}]
}`))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rep.Metadata.ScanID != "s1" || len(rep.Violations) != 1 {
			t.Errorf("decoded report = %+v", rep)
		}
	})

	t.Run("bare violations array rebuilds summary", func(t *testing.T) {
		rep, err := decodeReport([]byte(`[
  {"control_id": "IAM-001", "severity": "CRITICAL", "resource_address": "a", "message": "m", "enriched": true},
  {"control_id": "NET-001", "severity": "HIGH", "resource_address": "b", "message": "m", "enriched": true}
]`))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rep.Summary.Total != 2 || rep.Summary.BySeverity["critical"] != 1 {
			t.Errorf("rebuilt summary = %+v", rep.Summary)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := decodeReport([]byte(`not json`)); err == nil {
			t.Error("expected error for malformed input")
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a longer title that will not fit", 10, "a longe..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
