package config

import (
	"testing"
)

func checkByName(report *DoctorReport, name string) *DoctorCheck {
	for i := range report.Checks {
		if report.Checks[i].Name == name {
			return &report.Checks[i]
		}
	}
	return nil
}

func TestDoctorMissingFile(t *testing.T) {
	report := RunDoctor(t.TempDir() + "/nope.json")
	check := checkByName(report, "config file")
	if check == nil || check.Status != DoctorWarn {
		t.Fatalf("missing file should warn, got %+v", report.Checks)
	}
	if report.Failures() != 0 {
		t.Fatalf("missing file is not a failure")
	}
}

func TestDoctorMalformedFile(t *testing.T) {
	report := RunDoctor(validFile(t, `{"qq_bot":`))
	if checkByName(report, "document syntax").Status != DoctorFail {
		t.Fatalf("malformed file should fail syntax check")
	}
	if report.Failures() == 0 {
		t.Fatalf("malformed file must count as failure")
	}
}

func TestDoctorMissingRequired(t *testing.T) {
	report := RunDoctor(validFile(t, `{"qq_bot": {"qq_no": "10000"}}`))
	if report.Failures() == 0 {
		t.Fatalf("REQUIRED sentinels must fail: %+v", report.Checks)
	}
}

func TestDoctorHealthyFile(t *testing.T) {
	report := RunDoctor(validFile(t, `{
  "qq_bot": {"qq_no": "10000", "admin_qq": "9999"},
  "gemini": {"api_keys": ["key-1"]},
  "permissions": {"users": {"9999": {"roles": ["admin", "private_user"]}}}
}`))
	if report.Failures() != 0 {
		t.Fatalf("healthy file reported failures: %+v", report.Checks)
	}
	if checkByName(report, "admin entry").Status != DoctorPass {
		t.Fatalf("admin entry should pass: %+v", report.Checks)
	}
}
