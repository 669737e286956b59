package sitebridge

import (
	"testing"

	"lwfm/pkg/lwfm"
)

func TestBuildInvocationFallsBackToClass(t *testing.T) {
	desc := lwfm.SiteDescriptor{Class: "sites.hpc"}
	got, err := buildInvocation(desc, lwfm.PillarRun, "submit", nil)
	if err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	want := "import sites.hpc.run as _site; _site.submit()"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildInvocationUsesPerPillarOverride(t *testing.T) {
	desc := lwfm.SiteDescriptor{
		Class:     "sites.hpc",
		AuthClass: "shared.auth",
		RepoClass: "sites.hpc.s3repo",
	}

	got, err := buildInvocation(desc, lwfm.PillarAuth, "login", nil)
	if err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	if want := "import shared.auth.auth as _site; _site.login()"; got != want {
		t.Fatalf("auth pillar: got %q, want %q", got, want)
	}

	got, err = buildInvocation(desc, lwfm.PillarRepo, "put", nil)
	if err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	if want := "import sites.hpc.s3repo.repo as _site; _site.put()"; got != want {
		t.Fatalf("repo pillar: got %q, want %q", got, want)
	}

	// Run and Spin have no override configured, so both fall back to Class.
	got, err = buildInvocation(desc, lwfm.PillarRun, "submit", nil)
	if err != nil {
		t.Fatalf("buildInvocation: %v", err)
	}
	if want := "import sites.hpc.run as _site; _site.submit()"; got != want {
		t.Fatalf("run pillar (no override): got %q, want %q", got, want)
	}
}

func TestSiteDescriptorClassFor(t *testing.T) {
	desc := lwfm.SiteDescriptor{Class: "base", RunClass: "base.run_v2"}

	if got := desc.ClassFor(lwfm.PillarRun); got != "base.run_v2" {
		t.Fatalf("PillarRun: got %q, want override", got)
	}
	if got := desc.ClassFor(lwfm.PillarAuth); got != "base" {
		t.Fatalf("PillarAuth: got %q, want fallback to Class", got)
	}
}
