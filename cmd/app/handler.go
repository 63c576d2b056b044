package main

import (
	"net/http"

	"github.com/sushihentaime/bloglist/internal/blogservice"
)

func (app *application) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	blogs, err := app.blogService.ListBlogs(r.Context())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, blogs, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getBlogHandler(w http.ResponseWriter, r *http.Request) {
	blog, err := app.blogService.GetBlog(r.Context(), app.readIDParam(r))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, blog, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.CreateBlogRequest

	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	blog, err := app.blogService.CreateBlog(r.Context(), &input, app.contextGetPrincipal(r))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, blog, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) updateLikesHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Likes *int `json:"likes"`
	}

	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	blog, err := app.blogService.UpdateLikes(r.Context(), app.readIDParam(r), input.Likes)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, blog, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) appendCommentHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Comment string `json:"comment"`
	}

	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	blog, err := app.blogService.AppendComment(r.Context(), app.readIDParam(r), input.Comment, app.contextGetPrincipal(r))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, blog, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	err := app.blogService.DeleteBlog(r.Context(), app.readIDParam(r), app.contextGetPrincipal(r))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.blogService.Stats(r.Context())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, stats, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.userService.RegisterUser(r.Context(), input.Username, input.Name, input.Password)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, user, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.userService.ListUsers(r.Context())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, users, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	res, err := app.userService.LoginUser(r.Context(), input.Username, input.Password)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, res, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
