package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/database/memory"
	"github.com/JonMunkholm/sheetimport/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportFile_CSV(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	content := "code,name,description\n" +
		"CN-110000,Beijing,capital\n" +
		",Nowhere,\n" +
		"CN-440300,Shenzhen,\n" +
		"CN-110000,Beijing again,\n"

	result, err := svc.ImportFile(ctx, "uploads/regions.csv", content)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 5, *result.Errors[0].RowNumber, "duplicate is reported at its file row")

	require.Len(t, result.Rejected, 1)
	assert.Equal(t, parser.ValidationIssue{RowNumber: 3, Field: "code", Reason: "Value is required"}, result.Rejected[0])

	history, err := svc.ListJobs(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, history.Items[0].Source)
	assert.Equal(t, "regions.csv", *history.Items[0].Source)
	assert.Equal(t, 3, history.Items[0].TotalRows, "only accepted rows reach the job")

	regions, err := svc.ListRegions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	require.NotNil(t, regions[0].Description)
	assert.Equal(t, "capital", *regions[0].Description)
	assert.Nil(t, regions[1].Description)
}

func TestImportFile_JSON(t *testing.T) {
	svc := newService(memory.New())

	result, err := svc.ImportFile(context.Background(), "regions.json",
		`[{"code":"CN-110000","name":"Beijing"},{"code":"CN-510100","name":"Chengdu","description":"west"}]`)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Empty(t, result.Rejected)
}

func TestImportFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		wantErr  error
	}{
		{"unsupported extension", "regions.txt", "code,name\nA,B\n", parser.ErrUnsupportedExtension},
		{"malformed json", "regions.json", `[{"code":`, parser.ErrDecode},
		{"no accepted rows", "regions.csv", "code,name\n,missing\n", core.ErrEmptyBatch},
		{"header only", "regions.csv", "code,name\n", core.ErrEmptyBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			svc := newService(store)

			_, err := svc.ImportFile(context.Background(), tt.filename, tt.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)

			_, total, err := store.FetchJobs(context.Background(), 1, 0)
			require.NoError(t, err)
			assert.Zero(t, total, "input errors must not create a job")
		})
	}
}

func TestImportFile_RejectedRowsReturnedWithEmptyBatch(t *testing.T) {
	svc := newService(memory.New())

	result, err := svc.ImportFile(context.Background(), "regions.csv", "code,name\nCN-1,\n")
	require.ErrorIs(t, err, core.ErrEmptyBatch)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "name", result.Rejected[0].Field)
}

func TestRegionSchema_MaxLength(t *testing.T) {
	long := make([]byte, core.MaxTextLength+1)
	for i := range long {
		long[i] = 'x'
	}

	issues := core.RegionSchema().Check(2, parser.RawRow{"code": string(long), "name": "ok"})
	require.Len(t, issues, 1)
	assert.Equal(t, "code", issues[0].Field)
}

func TestRegionSchema_DescriptionOptional(t *testing.T) {
	schema := core.RegionSchema()

	assert.Empty(t, schema.Check(2, parser.RawRow{"code": "A", "name": "a"}))
	assert.Empty(t, schema.Check(2, parser.RawRow{"code": "A", "name": "a", "description": nil}))

	issues := schema.Check(2, parser.RawRow{
		"code":        "A",
		"name":        "a",
		"description": strings.Repeat("d", core.MaxDescriptionLength+1),
	})
	require.Len(t, issues, 1)
	assert.Equal(t, "description", issues[0].Field)
}

func TestSupportedExtensions(t *testing.T) {
	svc := newService(memory.New())
	assert.Equal(t, []string{".csv", ".json", ".xlsx"}, svc.SupportedExtensions())
}
