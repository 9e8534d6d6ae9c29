package utils

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFileKeyDateLayout(t *testing.T) {
	fkg := NewFileKeyGenerator("datafiles")
	key := fkg.GenerateFileKey("实验数据 2024.xlsx")

	parts := strings.Split(key, "/")
	require.Len(t, parts, 5)
	assert.Equal(t, "datafiles", parts[0])
	assert.Equal(t, time.Now().Format("2006"), parts[1])
	assert.Equal(t, time.Now().Format("01"), parts[2])
	assert.Equal(t, time.Now().Format("02"), parts[3])

	// 短uuid_文件名，空格换成下划线，扩展名保留
	assert.Regexp(t, `^[0-9a-f-]{8}_实验数据_2024\.xlsx$`, parts[4])
}

func TestGenerateFileKeyUnique(t *testing.T) {
	fkg := NewFileKeyGenerator("datafiles")
	assert.NotEqual(t, fkg.GenerateFileKey("a.csv"), fkg.GenerateFileKey("a.csv"))
}

func TestCleanFilename(t *testing.T) {
	fkg := NewFileKeyGenerator("datafiles")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"危险字符剔除", `数据<set>:v1|final?.csv`, "数据setv1final.csv"},
		{"连续分隔符折叠", "a__--..b.txt", "a_b.txt"},
		{"清空后兜底", "***.pdf", "document.pdf"},
		{"扩展名小写", "Report.XLSX", "Report.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fkg.cleanFilename(tt.in))
		})
	}
}

func TestCleanFilenameTruncatesOnRuneBoundary(t *testing.T) {
	fkg := NewFileKeyGenerator("datafiles")

	// 50 字节边界正好落在汉字中间
	long := strings.Repeat("研", 40) + ".docx"
	got := fkg.cleanFilename(long)

	base := strings.TrimSuffix(got, ".docx")
	assert.True(t, utf8.ValidString(base))
	assert.LessOrEqual(t, len(base), 50)
}
