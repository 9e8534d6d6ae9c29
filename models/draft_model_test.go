package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraftMigrateLegacyRefs(t *testing.T) {
	d := &TaskDraft{Refs: "[1] 某论文"}
	d.Migrate()
	assert.Equal(t, "[1] 某论文", d.RefDomestic)
	assert.Empty(t, d.Refs)
	assert.NotNil(t, d.UndoHistory)
}

func TestDraftMigrateKeepsNewFields(t *testing.T) {
	d := &TaskDraft{RefDomestic: "国内", Refs: "旧字段残留", RefForeign: "国外"}
	d.Migrate()
	// 新字段已有值时旧字段直接丢弃
	assert.Equal(t, "国内", d.RefDomestic)
	assert.Equal(t, "国外", d.RefForeign)
	assert.Empty(t, d.Refs)
}

func TestDraftMigrateIdempotent(t *testing.T) {
	d := &TaskDraft{Refs: "x"}
	d.Migrate()
	d.Migrate()
	assert.Equal(t, "x", d.RefDomestic)
}
