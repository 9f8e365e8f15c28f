package mediasvc

import (
	"context"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/trezcool/soko/core"
)

// Service hosts images on Cloudinary.
type Service struct {
	cld *cloudinary.Cloudinary
}

var _ core.MediaService = (*Service)(nil)

func NewService(conf *core.Config) (*Service, error) {
	cld, err := cloudinary.NewFromURL(conf.CloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "configuring media host")
	}
	return &Service{cld: cld}, nil
}

func (svc *Service) Upload(ctx context.Context, file io.Reader, name string) (string, error) {
	res, err := svc.cld.Upload.Upload(ctx, file, uploader.UploadParams{PublicID: name})
	if err != nil {
		return "", errors.Wrap(err, "uploading media")
	}
	return res.SecureURL, nil
}
