package terraform

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/regoguard/regoguard/internal/testutil"
)

const mainTF = `
resource "aws_s3_bucket" "logs" {
  bucket        = "corp-audit-logs"
  force_destroy = false

  versioning {
    enabled = true
  }

  tags = {
    team = "platform"
  }
}

resource "aws_security_group" "open" {
  name = "wide-open"

  ingress {
    from_port   = 0
    to_port     = 65535
    cidr_blocks = ["0.0.0.0/0"]
  }
}

variable "region" {
  default = "eu-west-1"
}
`

func TestRenderDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "main.tf"), mainTF)

	doc, err := NewRenderer().RenderDir(dir)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	resources := doc.PlannedValues.RootModule.Resources
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources (variable blocks ignored), got %d", len(resources))
	}

	bucket := resources[0]
	if bucket.Address != "aws_s3_bucket.logs" || bucket.Type != "aws_s3_bucket" {
		t.Errorf("bucket identity = %s (%s)", bucket.Address, bucket.Type)
	}
	if bucket.Values["bucket"] != "corp-audit-logs" {
		t.Errorf("bucket name = %v", bucket.Values["bucket"])
	}
	if bucket.Values["force_destroy"] != false {
		t.Errorf("force_destroy = %v", bucket.Values["force_destroy"])
	}

	versioning, ok := bucket.Values["versioning"].([]interface{})
	if !ok || len(versioning) != 1 {
		t.Fatalf("versioning should render as a block list, got %v", bucket.Values["versioning"])
	}
	if versioning[0].(map[string]interface{})["enabled"] != true {
		t.Errorf("versioning.enabled = %v", versioning[0])
	}

	sg := resources[1]
	ingress, ok := sg.Values["ingress"].([]interface{})
	if !ok || len(ingress) != 1 {
		t.Fatalf("ingress block missing: %v", sg.Values)
	}
	cidrs := ingress[0].(map[string]interface{})["cidr_blocks"].([]interface{})
	if len(cidrs) != 1 || cidrs[0] != "0.0.0.0/0" {
		t.Errorf("cidr_blocks = %v", cidrs)
	}
}

func TestRenderDirDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "b.tf"), `resource "aws_sqs_queue" "b" {}`)
	testutil.WriteFile(t, filepath.Join(dir, "a.tf"), `resource "aws_sns_topic" "a" {}`)

	doc, err := NewRenderer().RenderDir(dir)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	resources := doc.PlannedValues.RootModule.Resources
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}
	// Files parse in name order regardless of creation order.
	if resources[0].Address != "aws_sns_topic.a" {
		t.Errorf("first resource = %s, want aws_sns_topic.a", resources[0].Address)
	}
}

func TestRenderDirErrors(t *testing.T) {
	t.Run("no tf files", func(t *testing.T) {
		if _, err := NewRenderer().RenderDir(t.TempDir()); err == nil {
			t.Error("expected error for empty directory")
		}
	})

	t.Run("invalid hcl", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteFile(t, filepath.Join(dir, "broken.tf"), `resource "aws_s3_bucket" {`)
		if _, err := NewRenderer().RenderDir(dir); err == nil {
			t.Error("expected error for malformed HCL")
		}
	})
}

func TestMarshalIsValidJSON(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "main.tf"), mainTF)

	doc, err := NewRenderer().RenderDir(dir)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !json.Valid(data) {
		t.Error("rendered document must be valid JSON")
	}
}
