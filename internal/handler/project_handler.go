package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"

	"github.com/morf1ng/105site/internal/formschema"
	"github.com/morf1ng/105site/internal/model"
	"github.com/morf1ng/105site/internal/repository"
	"github.com/morf1ng/105site/internal/service"
	"github.com/morf1ng/105site/pkg/imagenorm"
)

const (
	maxProjectBody   = 64 << 20 // 64 MB
	maxProjectMemory = 32 << 20
)

// indexedFile は stage_imgs[0] / result_imgs[2] 形式のフィールド名
var indexedFile = regexp.MustCompile(`^(stage_imgs|result_imgs)\[(\d+)\]$`)

// ProjectHandler はプロジェクト CRUD の HTTP ハンドラ
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler は ProjectHandler を生成する
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List は GET /api/projects を処理する
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.List(r.Context())
	if err != nil {
		slog.Error("list projects failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get は GET /api/projects/{id} を処理する
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	project, err := h.projectService.GetByID(r.Context(), id)
	if err != nil {
		writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Create は POST /api/projects を処理する（管理者のみ）
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := bindProject(w, r)
	if !ok {
		return
	}
	project, err := h.projectService.Create(r.Context(), in)
	if err != nil {
		writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// Update は PUT /api/projects/{id} を処理する（管理者のみ）
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	in, ok := bindProject(w, r)
	if !ok {
		return
	}
	project, err := h.projectService.Update(r.Context(), id, in)
	if err != nil {
		writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Delete は DELETE /api/projects/{id} を処理する（管理者のみ）
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	if err := h.projectService.Delete(r.Context(), id); err != nil {
		writeProjectError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Deleted"})
}

func writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, "title_required")
	case errors.Is(err, service.ErrURLRequired):
		writeError(w, http.StatusBadRequest, "url_required")
	case errors.Is(err, service.ErrInvalidFile):
		writeError(w, http.StatusBadRequest, "invalid_file")
	default:
		slog.Error("project request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

// bindProject は multipart フォームを ProjectInput に変換する。失敗時はレスポンスを書いて false を返す
func bindProject(w http.ResponseWriter, r *http.Request) (*service.ProjectInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProjectBody)
	if err := parseForm(r, maxProjectMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid_form")
		return nil, false
	}

	in := &service.ProjectInput{
		Title:  r.PostFormValue("title"),
		URL:    r.PostFormValue("url"),
		Target: r.PostFormValue("target"),
		Task:   r.PostFormValue("task"),
	}

	var progress []struct {
		Digit float64 `json:"digit"`
		Text  string  `json:"text"`
	}
	for _, f := range []struct {
		name, def string
		dst       any
	}{
		{formschema.AboutCompany, "{}", &in.AboutCompany},
		{formschema.Stages, "[]", &in.Stages},
		{formschema.Result, "{}", &in.Result},
		{formschema.Progress, "[]", &progress},
	} {
		if err := formschema.Decode(f.name, r.PostFormValue(f.name), f.def, f.dst); err != nil {
			var fe *formschema.FieldError
			if errors.As(err, &fe) {
				writeError(w, http.StatusBadRequest, fe.Code())
				return nil, false
			}
			slog.Error("decode project field failed", "field", f.name, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
			return nil, false
		}
	}
	for _, p := range progress {
		in.Progress = append(in.Progress, model.Progress{Digit: p.Digit, Text: p.Text})
	}

	files, err := collectFiles(r.MultipartForm)
	if err != nil {
		slog.Warn("read uploaded file failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_file")
		return nil, false
	}
	in.Files = files
	return in, true
}

// collectFiles はアップロードを ProjectFiles にまとめる。
// 添字付きの result_imgs[i] は同じ位置の添字なし result_imgs より優先する
func collectFiles(form *multipart.Form) (service.ProjectFiles, error) {
	var files service.ProjectFiles
	if form == nil {
		return files, nil
	}

	single := func(key string) (imagenorm.Source, error) {
		hs := form.File[key]
		if len(hs) == 0 {
			return nil, nil
		}
		return readUpload(hs[0])
	}
	var err error
	if files.Preview, err = single("preview_img"); err != nil {
		return files, err
	}
	if files.Main, err = single("main_img"); err != nil {
		return files, err
	}
	if files.Notebook, err = single("notebook_img"); err != nil {
		return files, err
	}

	for _, fh := range form.File["stage_imgs"] {
		src, err := readUpload(fh)
		if err != nil {
			return files, err
		}
		files.StageList = append(files.StageList, src)
	}
	files.ResultByIndex = map[int]imagenorm.Source{}
	for i, fh := range form.File["result_imgs"] {
		src, err := readUpload(fh)
		if err != nil {
			return files, err
		}
		files.ResultByIndex[i] = src
	}

	files.StageByIndex = map[int]imagenorm.Source{}
	for key, hs := range form.File {
		m := indexedFile.FindStringSubmatch(key)
		if m == nil || len(hs) == 0 {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		src, err := readUpload(hs[0])
		if err != nil {
			return files, err
		}
		if m[1] == "stage_imgs" {
			files.StageByIndex[idx] = src
		} else {
			files.ResultByIndex[idx] = src
		}
	}
	return files, nil
}

// errUnsupportedImage は許可されていない形式のアップロード
var errUnsupportedImage = errors.New("unsupported image type")

// readUpload は空のファイル名・空の内容を未送信として nil を返す。
// 形式は内容から判定し、JPEG・PNG・WebP 以外は拒否する
func readUpload(fh *multipart.FileHeader) (imagenorm.Source, error) {
	if fh.Filename == "" || fh.Size == 0 {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	ct, ok := imagenorm.Sniff(data)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", errUnsupportedImage, fh.Filename, ct)
	}
	return imagenorm.NewFile(fh.Filename, ct, data), nil
}
