package backup

import (
	"errors"
	"testing"

	"bitbucket.org/mmagritech/farm_backend/models"
	"bitbucket.org/mmagritech/farm_backend/utils"
)

func TestOptionsValidate(t *testing.T) {
	base := Options{Dir: "/var/backups"}

	if err := base.validate(); err != nil {
		t.Errorf("plain full backup rejected: %v", err)
	}

	full := base
	full.Type = models.BackupTypeFull
	full.Compress = true
	if err := full.validate(); err != nil {
		t.Errorf("compressed full backup rejected: %v", err)
	}

	missing := Options{}
	if err := missing.validate(); !errors.Is(err, utils.ErrPrecondition) {
		t.Errorf("missing dir: err = %v, want ErrPrecondition", err)
	}
}

// Declared-but-unimplemented capabilities must fail loudly at validation,
// never silently no-op.
func TestOptionsValidate_UnsupportedCapabilities(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"encryption", Options{Dir: "/b", Encrypt: true}},
		{"remote upload", Options{Dir: "/b", RemoteUpload: true}},
		{"incremental", Options{Dir: "/b", Type: models.BackupTypeIncremental}},
		{"differential", Options{Dir: "/b", Type: models.BackupTypeDifferential}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.opts.validate(); !errors.Is(err, utils.ErrUnsupported) {
				t.Errorf("err = %v, want ErrUnsupported", err)
			}
		})
	}

	bogus := Options{Dir: "/b", Type: "weekly"}
	if err := bogus.validate(); !errors.Is(err, utils.ErrPrecondition) {
		t.Errorf("unknown type: err = %v, want ErrPrecondition", err)
	}
}

func TestRestoreRequiresConfirmation(t *testing.T) {
	o := &Orchestrator{}
	err := o.RestoreBackup(nil, "some-backup", RestoreOptions{Confirm: false})
	if !errors.Is(err, utils.ErrPrecondition) {
		t.Errorf("err = %v, want ErrPrecondition", err)
	}
}
