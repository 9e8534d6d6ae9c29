package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go_draft_backend/config"
	"go_draft_backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripDuplicateHeading(t *testing.T) {
	cases := []struct {
		name, content, title, want string
	}{
		{"剥掉重复标题行", "## 1.1 概述\n正文内容", "1.1 概述", "正文内容"},
		{"层级和大小写不敏感", "### 1.1 概述 补充\n正文", "1.1 概述", "正文"},
		{"没有重复标题不动", "正文内容", "1.1 概述", "正文内容"},
		{"标题含正则元字符", "## 3.1(a) 测试\n正文", "3.1(a) 测试", "正文"},
		{"正文中间的同名标题也剥", "开头\n## 摘要\n结尾", "摘要", "开头\n结尾"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripDuplicateHeading(tc.content, tc.title))
		})
	}
}

func TestVerifyLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Key != "valid-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.WriterStatusResp{Status: "success"})
	}))
	defer srv.Close()

	client := NewWriterClient(&config.Config{WriterBaseURL: srv.URL})

	ok, err := client.VerifyLogin(context.Background(), "valid-key")
	require.NoError(t, err)
	assert.True(t, ok)

	// 401 是正常的"无效卡密"信号，不是错误
	ok, err = client.VerifyLogin(context.Background(), "bad-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRewriteSectionStripsHeading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.WriterRewriteReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1.1 概述", req.SectionTitle)
		assert.Equal(t, "key-1", r.Header.Get("X-User-ID"))
		_ = json.NewEncoder(w).Encode(models.WriterRewriteResp{
			Status:  "success",
			Content: "## 1.1 概述\n重写后的正文",
		})
	}))
	defer srv.Close()

	client := NewWriterClient(&config.Config{WriterBaseURL: srv.URL})
	content, err := client.RewriteSection(context.Background(), "key-1", &models.WriterRewriteReq{
		SectionTitle: "1.1 概述",
		Instruction:  "重写",
	})
	require.NoError(t, err)
	assert.Equal(t, "重写后的正文", content)
}

func TestRewriteSectionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.WriterRewriteResp{Status: "error", Msg: "模型超载"})
	}))
	defer srv.Close()

	client := NewWriterClient(&config.Config{WriterBaseURL: srv.URL})
	_, err := client.RewriteSection(context.Background(), "key-1", &models.WriterRewriteReq{SectionTitle: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "模型超载")
}

func TestPlanWordCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.SmartDistributeReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5000, req.TotalWords)
		assert.Equal(t, []string{"摘要", "1.1 背景"}, req.LeafTitles)
		_ = json.NewEncoder(w).Encode(models.SmartDistributeResp{
			Status: "success",
			Distribution: map[string]models.LeafPlan{
				"摘要": {Words: 400},
			},
		})
	}))
	defer srv.Close()

	client := NewWriterClient(&config.Config{WriterBaseURL: srv.URL})
	plan, err := client.PlanWordCount(context.Background(), 5000, []string{"摘要", "1.1 背景"})
	require.NoError(t, err)
	assert.Equal(t, 400, plan["摘要"].Words)
}

func TestStartGenerateSubmitsContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "t1", r.FormValue("task_id"))
		assert.Equal(t, "论文标题", r.FormValue("title"))
		assert.Equal(t, "续写种子", r.FormValue("initial_context"))
		assert.Equal(t, "key-1", r.Header.Get("X-User-ID"))

		var flat []models.FlatTask
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("chapter_data")), &flat))
		require.Len(t, flat, 2)
		assert.True(t, flat[0].IsParent)

		files := r.MultipartForm.File["data_files"]
		require.Len(t, files, 1)
		assert.Equal(t, "数据.csv", files[0].Filename)
	}))
	defer srv.Close()

	client := NewWriterClient(&config.Config{WriterBaseURL: srv.URL})
	err := client.StartGenerate(context.Background(), "key-1", &models.GenerateSubmission{
		TaskID:         "t1",
		Title:          "论文标题",
		InitialContext: "续写种子",
		Tasks: []models.FlatTask{
			{Title: "第一章", IsParent: true, Level: 1},
			{Title: "1.1 背景", Level: 2, Words: 500},
		},
		Files: []models.DataFile{{Name: "数据.csv", Content: []byte("a,b\n1,2\n")}},
	})
	require.NoError(t, err)
}

func TestStartGenerateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.WriterStatusResp{Status: "error", Msg: "大纲为空"})
	}))
	defer srv.Close()

	client := NewWriterClient(&config.Config{WriterBaseURL: srv.URL})
	err := client.StartGenerate(context.Background(), "key-1", &models.GenerateSubmission{TaskID: "t1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "大纲为空")
}
