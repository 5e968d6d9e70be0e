package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/errortracker/internal/form"
)

const imageField = "image"

// decodeForm reads a record form from a JSON body or a multipart form with an
// optional image part.
func decodeForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (form.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var in form.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return form.Input{}, errors.New("invalid JSON body")
		}
		return in, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form.Input{}, fmt.Errorf("upload exceeds %d bytes", maxUpload)
		}
		return form.Input{}, errors.New("invalid multipart form")
	}

	removeImage, _ := strconv.ParseBool(r.FormValue("remove_image"))
	in := form.Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Resolution:  r.FormValue("resolution"),
		Severity:    r.FormValue("severity"),
		Status:      r.FormValue("status"),
		System:      r.FormValue("system"),
		ErrorCode:   r.FormValue("error_code"),
		StackTrace:  r.FormValue("stack_trace"),
		Tags:        r.FormValue("tags"),
		RemoveImage: removeImage,
	}

	file, header, err := r.FormFile(imageField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return form.Input{}, errors.New("invalid image part")
	default:
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		in.Image = &form.Image{
			Filename:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Data:        file,
		}
	}

	return in, nil
}

func closeImage(in form.Input) {
	if in.Image == nil {
		return
	}
	if c, ok := in.Image.Data.(io.Closer); ok {
		c.Close()
	}
}
