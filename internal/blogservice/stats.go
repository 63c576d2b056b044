package blogservice

// Dummy always reports 1. It only exists as a probe that the analytics package is wired.
func Dummy([]Blog) int {
	return 1
}

func TotalLikes(blogs []Blog) int {
	total := 0
	for _, b := range blogs {
		total += b.Likes
	}
	return total
}

// FavoriteBlog returns the blog with the most likes. The earliest blog wins a tie.
func FavoriteBlog(blogs []Blog) (Blog, bool) {
	if len(blogs) == 0 {
		return Blog{}, false
	}

	best := blogs[0]
	for _, b := range blogs[1:] {
		if b.Likes > best.Likes {
			best = b
		}
	}
	return best, true
}

type AuthorCount struct {
	Author string `json:"author"`
	Blogs  int    `json:"blogs"`
}

type AuthorLikes struct {
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

// MostBlogs returns the author with the most blogs. On a tie the author whose
// first blog appears earliest in blogs wins.
func MostBlogs(blogs []Blog) (AuthorCount, bool) {
	authors, totals := groupByAuthor(blogs, func(Blog) int { return 1 })
	i, ok := argmax(totals)
	if !ok {
		return AuthorCount{}, false
	}
	return AuthorCount{Author: authors[i], Blogs: totals[i]}, true
}

// MostLikes returns the author with the highest like total, with the same tie
// rule as MostBlogs.
func MostLikes(blogs []Blog) (AuthorLikes, bool) {
	authors, totals := groupByAuthor(blogs, func(b Blog) int { return b.Likes })
	i, ok := argmax(totals)
	if !ok {
		return AuthorLikes{}, false
	}
	return AuthorLikes{Author: authors[i], Likes: totals[i]}, true
}

// groupByAuthor sums weight per author. Authors come back in order of first appearance.
func groupByAuthor(blogs []Blog, weight func(Blog) int) ([]string, []int) {
	index := make(map[string]int)
	var (
		authors []string
		totals  []int
	)

	for _, b := range blogs {
		i, ok := index[b.Author]
		if !ok {
			i = len(authors)
			index[b.Author] = i
			authors = append(authors, b.Author)
			totals = append(totals, 0)
		}
		totals[i] += weight(b)
	}

	return authors, totals
}

func argmax(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}

	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best, true
}

// Stats is the analytics digest over one listing. Nil members mean an empty listing.
type Stats struct {
	Count        int          `json:"count"`
	TotalLikes   int          `json:"total_likes"`
	FavoriteBlog *Blog        `json:"favorite_blog"`
	MostBlogs    *AuthorCount `json:"most_blogs"`
	MostLikes    *AuthorLikes `json:"most_likes"`
}

func ComputeStats(blogs []Blog) Stats {
	s := Stats{Count: len(blogs), TotalLikes: TotalLikes(blogs)}

	if b, ok := FavoriteBlog(blogs); ok {
		s.FavoriteBlog = &b
	}
	if a, ok := MostBlogs(blogs); ok {
		s.MostBlogs = &a
	}
	if a, ok := MostLikes(blogs); ok {
		s.MostLikes = &a
	}

	return s
}
