package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Location is a longitude/latitude pair, longitude first as in GeoJSON.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// ThumbnailImage is an embedded image, base64-encoded.
type ThumbnailImage struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

// ThumbnailRequest is the request body for POST /api/thumbnails.
type ThumbnailRequest struct {
	Title    string          `json:"title"`
	Location Location        `json:"location"`
	Img      *ThumbnailImage `json:"img,omitempty"`
}

// ThumbnailResponse is a stored thumbnail. The image is returned
// base64-encoded when present.
type ThumbnailResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Location  Location        `json:"location"`
	Img       *ThumbnailImage `json:"img,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

func validCoordinates(longitude, latitude float64) bool {
	return longitude >= -180 && longitude <= 180 && latitude >= -90 && latitude <= 90
}

func thumbnailResponse(t Thumbnail) ThumbnailResponse {
	resp := ThumbnailResponse{
		ID:        t.ID,
		Title:     t.Title,
		Location:  Location{Longitude: t.Longitude, Latitude: t.Latitude},
		CreatedAt: t.CreatedAt,
	}
	if len(t.Img) > 0 {
		resp.Img = &ThumbnailImage{
			Data:        base64.StdEncoding.EncodeToString(t.Img),
			ContentType: t.ImgContentType,
		}
	}
	return resp
}

func handleCreateThumbnail(store Store, secret, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := userFromRequest(r, secret); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		var req ThumbnailRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeError(w, http.StatusUnprocessableEntity, "title is required")
			return
		}
		if !validCoordinates(req.Location.Longitude, req.Location.Latitude) {
			writeError(w, http.StatusUnprocessableEntity, "invalid longitude/latitude coordinates")
			return
		}

		t := Thumbnail{
			Title:     req.Title,
			Longitude: req.Location.Longitude,
			Latitude:  req.Location.Latitude,
		}
		if req.Img != nil {
			img, err := base64.StdEncoding.DecodeString(req.Img.Data)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "img.data is not valid base64")
				return
			}
			t.Img = img
			t.ImgContentType = req.Img.ContentType
		}

		saved, err := store.CreateThumbnail(r.Context(), t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Location", fmt.Sprintf("%s/api/thumbnails/%s", baseURL, saved.ID))
		writeJSON(w, http.StatusCreated, thumbnailResponse(saved))
	}
}

func handleListThumbnails(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		thumbnails, err := store.ListThumbnails(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := make([]ThumbnailResponse, 0, len(thumbnails))
		for _, t := range thumbnails {
			resp = append(resp, thumbnailResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetThumbnail(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.ThumbnailByID(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "thumbnail not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, thumbnailResponse(t))
	}
}
