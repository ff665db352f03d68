package page

import "fmt"

// Image is a binary file found among the pages. It is copied as is.
type Image struct {
	item
}

func NewImage(site Site, sourcePath string) *Image {
	return &Image{
		item: item{
			site:       site,
			sourcePath: sourcePath,
			loc:        ImageLocation(sourcePath),
		},
	}
}

func (i *Image) Kind() Kind { return KindImage }

func (i *Image) String() string {
	return fmt.Sprintf("<Image: %s>", i.sourcePath)
}
