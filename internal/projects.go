package internal

import (
	"net/http"

	"project-service/internal/models"
	"project-service/internal/service"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.Projects.ListAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) listArtisanProjects(w http.ResponseWriter, r *http.Request) {
	artisanID, ok := artisanParam(w, r, "artisanId")
	if !ok {
		return
	}
	projects, err := s.Projects.ListByArtisan(r.Context(), artisanID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.Projects.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var in models.CreateProjectRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := service.Validate(in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	p, err := s.Projects.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in models.UpdateProjectRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := service.Validate(in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	p, err := s.Projects.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProjectStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in models.UpdateStatusRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := service.Validate(in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	p, err := s.Projects.UpdateStatus(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) addProjectUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in models.CreateChantierUpdateRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := service.Validate(in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	u, err := s.Projects.AddUpdate(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listProjectUpdates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	updates, err := s.Projects.ListUpdates(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updates)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Projects.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
