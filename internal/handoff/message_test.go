package handoff

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	msgs := []Message{
		{
			Mode:         ModeUpdate,
			ArtifactPath: "/tmp/staging/App-v2.1.jar",
			DeletePath:   "/opt/app/App-v2.0.jar",
			InstallDir:   "/opt/app",
			Debug:        true,
			WorkDir:      "/opt/app",
			StatusFile:   "/tmp/simplefx-status-1.txt",
			ParentPID:    4242,
			Version:      "app-2-202406010000 v2.1 June 1 2024",
		},
		{
			Mode:       ModeRename,
			DeletePath: "/opt/app/Old-v2.0.jar",
			InstallDir: "/opt/app",
			OldName:    "Old-v2.0.jar",
			NewName:    "New-v1.0.jar",
		},
		{
			Mode:       ModeCleanup,
			DeletePath: "/tmp/staging/App-v2.1.jar",
		},
	}

	for _, m := range msgs {
		t.Run(string(m.Mode), func(t *testing.T) {
			enc, err := Encode(m)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if strings.ContainsAny(enc, " \t\n\"'") {
				t.Errorf("encoded message is not a single safe argument: %q", enc)
			}
			got, err := Decode(enc)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !reflect.DeepEqual(got, m) {
				t.Errorf("Decode(Encode(m)) = %+v, want %+v", got, m)
			}
		})
	}
}

func TestArgs(t *testing.T) {
	m := Message{Mode: ModeCleanup, DeletePath: "/tmp/x.jar"}
	args, err := m.Args()
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 2 || args[0] != "handoff" || !strings.HasPrefix(args[1], "--handoff=") {
		t.Errorf("Args() = %v", args)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"cleanup", Message{Mode: ModeCleanup, DeletePath: "/x"}, true},
		{"update needs install dir", Message{Mode: ModeUpdate, DeletePath: "/x"}, false},
		{"rename needs names", Message{Mode: ModeRename, DeletePath: "/x", InstallDir: "/opt"}, false},
		{"unknown mode", Message{Mode: "upgrade", DeletePath: "/x"}, false},
		{"missing delete path", Message{Mode: ModeCleanup}, false},
		{"rename", Message{Mode: ModeRename, DeletePath: "/x", InstallDir: "/opt", OldName: "A.jar", NewName: "B.jar"}, true},
		{"rename escapes install dir", Message{Mode: ModeRename, DeletePath: "/x", InstallDir: "/opt", OldName: "A.jar", NewName: "../B.jar"}, false},
		{"rename into subdir", Message{Mode: ModeRename, DeletePath: "/x", InstallDir: "/opt", OldName: "A.jar", NewName: "lib/B.jar"}, false},
		{"rename old name is path", Message{Mode: ModeRename, DeletePath: "/x", InstallDir: "/opt", OldName: "/opt/A.jar", NewName: "B.jar"}, false},
		{"rename dot dot", Message{Mode: ModeRename, DeletePath: "/x", InstallDir: "/opt", OldName: "A.jar", NewName: ".."}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDecode_Garbage(t *testing.T) {
	for _, in := range []string{"!!!", "bm90IGpzb24"} {
		if _, err := Decode(in); !errors.Is(err, ErrInvalid) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalid", in, err)
		}
	}
}

func TestLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want []string
	}{
		{
			name: "update with status file",
			msg:  Message{Mode: ModeUpdate, DeletePath: "/opt/App-v2.0.jar", Debug: true, WorkDir: "/opt", StatusFile: "/tmp/s.txt"},
			want: []string{"/opt/App-v2.0.jar", "true", "true", "/opt", "/tmp/s.txt"},
		},
		{
			name: "cleanup",
			msg:  Message{Mode: ModeCleanup, DeletePath: "/tmp/stage/App-v2.1.jar", WorkDir: "/opt"},
			want: []string{"/tmp/stage/App-v2.1.jar", "false", "false", "/opt"},
		},
		{
			name: "rename",
			msg:  Message{Mode: ModeRename, DeletePath: "/opt/Old-v1.jar", WorkDir: "/opt", OldName: "Old-v1.jar", NewName: "New-v1.jar"},
			want: []string{"REFACTOR", "/opt/Old-v1.jar", "true", "false", "/opt", "Old-v1.jar", "New-v1.jar"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.msg.LegacyArgs()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LegacyArgs() = %v, want %v", got, tt.want)
			}
			back, err := ParseLegacy(got)
			if err != nil {
				t.Fatalf("ParseLegacy() error: %v", err)
			}
			if back.Mode != tt.msg.Mode || back.DeletePath != tt.msg.DeletePath ||
				back.Debug != tt.msg.Debug || back.WorkDir != tt.msg.WorkDir ||
				back.StatusFile != tt.msg.StatusFile || back.OldName != tt.msg.OldName ||
				back.NewName != tt.msg.NewName {
				t.Errorf("ParseLegacy(LegacyArgs()) = %+v, want %+v", back, tt.msg)
			}
		})
	}
}

func TestParseLegacy_Invalid(t *testing.T) {
	tests := [][]string{
		nil,
		{"/x", "true", "false"},
		{"/x", "maybe", "false", "/opt"},
		{"/x", "true", "yes please", "/opt"},
		{"/x", "true", "false", "/opt", "/s", "extra"},
		{"REFACTOR", "/x", "true", "false", "/opt"},
		{"", "true", "false", "/opt"},
	}
	for _, args := range tests {
		if _, err := ParseLegacy(args); !errors.Is(err, ErrInvalid) {
			t.Errorf("ParseLegacy(%v) error = %v, want ErrInvalid", args, err)
		}
	}
}
