package storage

import (
	"context"
	"errors"
	"testing"
)

func TestBuildLabelPDFPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeLabelPDF, PathParams{
		TemplateID: "01TPL",
		ExportID:   "01EXP",
		FileName:   "shelf_sample_bike_helmet.pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "exports/labels/01TPL/01EXP/shelf_sample_bike_helmet.pdf"; path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}

	path, err = BuildObjectPath(PurposeLabelPDF, PathParams{ExportID: "01EXP", FileName: "label.pdf"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "exports/labels/adhoc/01EXP/label.pdf"; path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
}

func TestBuildImportSourcePathDefaultsFileName(t *testing.T) {
	path, err := BuildObjectPath(PurposeImportSource, PathParams{ImportID: "01IMP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "imports/csv/01IMP/upload.csv"; path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
}

func TestBuildObjectPathRejectsInvalidSegments(t *testing.T) {
	cases := []PathParams{
		{TemplateID: "../x", ExportID: "e", FileName: "f.pdf"},
		{TemplateID: "t", ExportID: "", FileName: "f.pdf"},
		{TemplateID: "t", ExportID: "e", FileName: "a/b.pdf"},
	}
	for _, params := range cases {
		if _, err := BuildObjectPath(PurposeLabelPDF, params); err == nil {
			t.Fatalf("expected error for %+v", params)
		}
	}
	if _, err := BuildObjectPath(Purpose("unknown"), PathParams{}); err == nil {
		t.Fatalf("expected unsupported purpose error")
	}
}

func TestExporterPut(t *testing.T) {
	var gotBucket, gotObject, gotType string
	exporter, err := newExporter("labels-exports", func(_ context.Context, bucket, object string, upload Upload) (int64, error) {
		gotBucket, gotObject, gotType = bucket, object, upload.ContentType
		return int64(len(upload.Data)), nil
	})
	if err != nil {
		t.Fatalf("newExporter: %v", err)
	}

	obj, err := exporter.Put(context.Background(), Upload{
		Purpose:     PurposeLabelPDF,
		Params:      PathParams{TemplateID: "tpl", ExportID: "exp", FileName: "label.pdf"},
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if gotBucket != "labels-exports" || gotObject != "exports/labels/tpl/exp/label.pdf" || gotType != "application/pdf" {
		t.Fatalf("unexpected write %s %s %s", gotBucket, gotObject, gotType)
	}
	if obj.Size != 8 || obj.URI() != "gs://labels-exports/exports/labels/tpl/exp/label.pdf" {
		t.Fatalf("unexpected object %+v", obj)
	}
}

func TestExporterPutErrors(t *testing.T) {
	failing, _ := newExporter("b", func(context.Context, string, string, Upload) (int64, error) {
		return 0, errors.New("quota")
	})
	upload := Upload{Purpose: PurposeImportSource, Params: PathParams{ImportID: "i"}, Data: []byte("a,b")}
	if _, err := failing.Put(context.Background(), upload); err == nil {
		t.Fatalf("expected write error")
	}
	upload.Data = nil
	if _, err := failing.Put(context.Background(), upload); err == nil {
		t.Fatalf("expected empty payload error")
	}
	if _, err := newExporter(" ", nil); err == nil {
		t.Fatalf("expected bucket error")
	}
}
