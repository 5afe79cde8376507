package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"imagectl/pkg/webhook"
)

func newAMICmd(a *app) *cobra.Command {
	var (
		tag      string
		endpoint string
		eks      string
		launch   bool
	)
	cmd := &cobra.Command{
		Use:   "ami [images...]",
		Short: "Ask the AMI builder for an AMI preloaded with the images",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tag == "" {
				return usagef("--tag is required")
			}
			if endpoint == "" {
				return usagef("--endpoint is required")
			}
			log := a.entry("ami")
			imgs, err := imageArgs(args)
			if err != nil {
				return err
			}
			log.Infof("images: %v", imgs)
			log.Infof("eks_version: %s", formatOrNone(eks))
			log.Infof("tag: %s", tag)
			log.Infof("launch?: %v", launch)
			log.Info("endpoint: ***")

			log.Info("Calling the builder ...")
			resp, err := a.hooks.LaunchAMI(cmd.Context(), endpoint, webhook.AMIRequest{
				Images:  imgs,
				Tag:     tag,
				Launch:  launch,
				Version: eks,
			})
			var se *webhook.StatusError
			switch {
			case resp != nil:
				log.Infof("status: %d", resp.StatusCode)
				log.Infof("text: %s", resp.Body)
			case errors.As(err, &se):
				log.Infof("status: %d", se.StatusCode)
				log.Infof("text: %s", se.Body)
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&tag, "tag", "", "AMI tag to produce")
	fs.StringVar(&endpoint, "endpoint", envDefault("IMAGECTL_AMI_ENDPOINT", ""), "trigger endpoint (env IMAGECTL_AMI_ENDPOINT)")
	fs.StringVar(&eks, "eks", "", "EKS version to use, e.g. 1.33")
	fs.BoolVar(&launch, "launch", false, "run the builder")
	return cmd
}

func formatOrNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
