package blogservice

import "github.com/sushihentaime/bloglist/internal/common"

func validateBlog(v *common.Validator, req *CreateBlogRequest) {
	v.Required(req.Title, "title")
	v.Required(req.URL, "url")
	validateLikes(v, req.Likes, false)
}

func validateLikes(v *common.Validator, likes *int, required bool) {
	if likes == nil {
		v.Check(!required, "likes", "must be provided")
		return
	}
	v.Check(*likes >= 0, "likes", "must not be negative")
}
