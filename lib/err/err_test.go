package err

import "testing"

func TestNewAndIs(t *testing.T) {
	e := New(Config, "mesh.nx1 = %d is not >= 4", 2)
	if !Is(e, Config) {
		t.Errorf("expected Is(e, Config) to be true")
	}
	if Is(e, Capacity) {
		t.Errorf("expected Is(e, Capacity) to be false")
	}
	want := "ConfigError: mesh.nx1 = 2 is not >= 4"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestKindString(t *testing.T) {
	cases := []struct {
		k    Kind
		want string
	}{
		{Config, "ConfigError"},
		{Capacity, "CapacityError"},
		{CorruptedRestart, "CorruptedRestart"},
		{IO, "IOError"},
	}
	for _, c := range cases {
		if got := c.k.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.k, got, c.want)
		}
	}
}
