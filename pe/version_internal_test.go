package pe

import "testing"

func TestSelectLoadConfigVersionExactSizes(t *testing.T) {
	for _, table := range [][]versionSize{loadConfigSizes32, loadConfigSizes64} {
		for _, vs := range table {
			if got := selectLoadConfigVersion(vs.size, table); got != vs.version {
				t.Errorf("size %#x: got %s, want %s", vs.size, got, vs.version)
			}
		}
	}
}

func TestSelectLoadConfigVersionBetweenSizes(t *testing.T) {
	tests := []struct {
		observed uint32
		table    []versionSize
		want     LoadConfigVersion
	}{
		{0x41, loadConfigSizes32, LoadConfigV0},
		{0x5b, loadConfigSizes32, LoadConfigV1},
		{0xffffffff, loadConfigSizes32, LoadConfigV7},
		{0x6f, loadConfigSizes64, LoadConfigV0},
		{0x95, loadConfigSizes64, LoadConfigV2},
	}
	for _, tt := range tests {
		if got := selectLoadConfigVersion(tt.observed, tt.table); got != tt.want {
			t.Errorf("size %#x: got %s, want %s", tt.observed, got, tt.want)
		}
	}
}

func TestSelectLoadConfigVersionBelowMinimum(t *testing.T) {
	if got := selectLoadConfigVersion(0x3f, loadConfigSizes32); got != LoadConfigUnknown {
		t.Errorf("got %s, want unknown", got)
	}
	if got := selectLoadConfigVersion(0, loadConfigSizes64); got != LoadConfigUnknown {
		t.Errorf("got %s, want unknown", got)
	}
}

func TestSelectLoadConfigVersionMonotonic(t *testing.T) {
	for _, table := range [][]versionSize{loadConfigSizes32, loadConfigSizes64} {
		prev := LoadConfigUnknown
		for observed := uint32(0); observed <= 0x200; observed++ {
			v := selectLoadConfigVersion(observed, table)
			if v < prev {
				t.Fatalf("selection regressed from %s to %s at size %#x", prev, v, observed)
			}
			prev = v
		}
	}
}

func TestLoadConfigVersionString(t *testing.T) {
	if LoadConfigUnknown.String() != "unknown" {
		t.Errorf("unknown prints as %q", LoadConfigUnknown.String())
	}
	if LoadConfigV7.String() != "v7" {
		t.Errorf("v7 prints as %q", LoadConfigV7.String())
	}
}
