package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	dangerousChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	unsafeChars    = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
	repeatedMarks  = regexp.MustCompile(`[_\-\.]{2,}`)
)

// FileKeyGenerator 按日期分层生成对象 key：
// prefix/2006/01/02/短uuid_清理后的文件名。
// 数据文件按上传日归档，排查时能直接按日期翻桶。
type FileKeyGenerator struct {
	prefix     string
	maxNameLen int
}

func NewFileKeyGenerator(prefix string) *FileKeyGenerator {
	return &FileKeyGenerator{
		prefix:     prefix,
		maxNameLen: 50,
	}
}

func (fkg *FileKeyGenerator) GenerateFileKey(filename string) string {
	now := time.Now()
	uid := uuid.New().String()[:8]
	cleanName := fkg.cleanFilename(filename)

	return fmt.Sprintf("%s/%s/%s/%s/%s_%s",
		fkg.prefix, now.Format("2006"), now.Format("01"), now.Format("02"),
		uid, cleanName)
}

// cleanFilename 去掉不能进对象 key 的字符，超长时截断但不切坏 UTF-8
func (fkg *FileKeyGenerator) cleanFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	baseName := strings.TrimSuffix(filename, filepath.Ext(filename))

	cleanBase := fkg.sanitizeFilename(baseName)

	if len(cleanBase) > fkg.maxNameLen {
		cleanBase = fkg.ensureValidUTF8End(cleanBase[:fkg.maxNameLen])
	}

	if cleanBase == "" || cleanBase == "_" {
		cleanBase = "document"
	}

	return cleanBase + ext
}

func (fkg *FileKeyGenerator) sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = dangerousChars.ReplaceAllString(name, "")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = repeatedMarks.ReplaceAllString(name, "_")
	return strings.Trim(name, "_-.")
}

// 截断可能落在多字节字符中间，往回退到字符边界
func (fkg *FileKeyGenerator) ensureValidUTF8End(s string) string {
	if len(s) == 0 {
		return s
	}
	for i := len(s) - 1; i >= 0 && i >= len(s)-4; i-- {
		if s[i]&0x80 == 0 {
			return s
		}
		if s[i]&0xC0 == 0xC0 {
			return s[:i]
		}
	}
	return s
}
