package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DoctorStatus is the outcome of one diagnostic check.
type DoctorStatus string

const (
	DoctorPass DoctorStatus = "pass"
	DoctorWarn DoctorStatus = "warn"
	DoctorFail DoctorStatus = "fail"
)

// DoctorCheck is one named diagnostic result.
type DoctorCheck struct {
	Name    string
	Status  DoctorStatus
	Message string
}

// DoctorReport aggregates the checks run against one config file.
type DoctorReport struct {
	Checks []DoctorCheck
}

func (r *DoctorReport) add(name string, status DoctorStatus, format string, args ...any) {
	r.Checks = append(r.Checks, DoctorCheck{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
}

// Failures counts failing checks.
func (r *DoctorReport) Failures() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == DoctorFail {
			n++
		}
	}
	return n
}

// RunDoctor diagnoses the config file at path without mutating it. Unlike
// Load it never stops at the first problem, so the operator sees every
// issue in one pass.
func RunDoctor(path string) *DoctorReport {
	report := &DoctorReport{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		report.add("config file", DoctorWarn, "%s does not exist; a template is written on first start", path)
		return report
	}
	if err != nil {
		report.add("config file", DoctorFail, "read %s: %v", path, err)
		return report
	}
	report.add("config file", DoctorPass, "%s (%d bytes)", path, len(data))

	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil || probe == nil {
		report.add("document syntax", DoctorFail, "not a JSON object: %v", err)
		return report
	}
	report.add("document syntax", DoctorPass, "valid JSON object")

	doc, err := mergeOverDefaults(data)
	if err != nil {
		report.add("document shape", DoctorFail, "%v", err)
		return report
	}
	report.add("document shape", DoctorPass, "merges cleanly over built-in defaults")
	ensureSections(doc)

	if missing := missingRequired(doc); len(missing) > 0 {
		for _, key := range missing {
			report.add("required key", DoctorFail, "%s is unset or still %q", key, RequiredSentinel)
		}
	} else {
		report.add("required keys", DoctorPass, "all identity keys set")
	}

	admin := doc.Bot.AdminQQ
	if admin != "" && admin != RequiredSentinel {
		entry := doc.Permissions.Users[admin]
		if entry == nil {
			report.add("admin entry", DoctorWarn, "no permission entry for admin %s; it is repaired on load", admin)
		} else {
			healthy := false
			for _, r := range entry.Roles {
				if r == "admin" {
					healthy = true
				}
			}
			if healthy {
				report.add("admin entry", DoctorPass, "admin %s carries the admin role", admin)
			} else {
				report.add("admin entry", DoctorWarn, "entry for %s lacks the admin role; it is repaired on load", admin)
			}
		}
	}

	if doc.Groups[DefaultScopeKey] == nil {
		report.add("group template", DoctorWarn, "group.%s missing; built-in defaults apply", DefaultScopeKey)
	} else {
		report.add("group template", DoctorPass, "group.%s present", DefaultScopeKey)
	}

	return report
}
