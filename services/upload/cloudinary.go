package uploadsvc

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go"
	"github.com/cloudinary/cloudinary-go/api/uploader"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
)

// CloudinaryStorage stores uploaded files (payment proofs, avatars,
// thumbnails, assignment submissions, certificates) on Cloudinary.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

var _ core.FileStorage = (*CloudinaryStorage)(nil)

func NewCloudinaryStorage(conf *core.Config) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(conf.CloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "configuring cloudinary")
	}
	return &CloudinaryStorage{cld: cld}, nil
}

func (s *CloudinaryStorage) Upload(ctx context.Context, r io.Reader, folder, filename string) (string, error) {
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   folder,
		PublicID: filename,
		// let Cloudinary detect images vs raw files (PDFs, docs)
		ResourceType: "auto",
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading to cloudinary")
	}
	return res.SecureURL, nil
}
