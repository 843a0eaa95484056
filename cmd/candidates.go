package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/candidates"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage project candidates",
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a candidate with a resume and a character sketch",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		addCandidate(cmd)
	},
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project candidates and their last score",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		listCandidates(cmd)
	},
}

func init() {
	for _, c := range []*cobra.Command{candidatesAddCmd, candidatesListCmd} {
		c.Flags().StringP("project", "p", "", "project id")
		c.MarkFlagRequired("project")
	}
	candidatesAddCmd.Flags().String("id", "", "candidate id (generated when empty)")
	candidatesAddCmd.Flags().String("name", "", "candidate name")
	candidatesAddCmd.Flags().String("resume", "", "resume file (pdf, docx, odt, rtf or text)")
	candidatesAddCmd.Flags().String("character", "", "character sketch text file")
	candidatesAddCmd.MarkFlagRequired("name")

	candidatesCmd.AddCommand(candidatesAddCmd, candidatesListCmd)
	rootCmd.AddCommand(candidatesCmd)
}

func addCandidate(cmd *cobra.Command) {
	ctx := context.Background()
	s := mustSetup(ctx, false)
	defer s.Close()

	project, _ := cmd.Flags().GetString("project")
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	resumePath, _ := cmd.Flags().GetString("resume")
	characterPath, _ := cmd.Flags().GetString("character")

	c := candidates.Candidate{ID: id, Name: name}
	var err error
	if resumePath != "" {
		if c.Resume, err = os.ReadFile(resumePath); err != nil {
			s.logger.Fatal("reading resume", zap.Error(err))
		}
	}
	if characterPath != "" {
		if c.Character, err = os.ReadFile(characterPath); err != nil {
			s.logger.Fatal("reading character sketch", zap.Error(err))
		}
	}

	c, err = s.projects.Put(ctx, project, c, filepath.Ext(resumePath))
	if err != nil {
		s.logger.Fatal("adding candidate", zap.Error(err))
	}
	s.logger.Info("candidate added", zap.String("project", project), zap.String("candidate_id", c.ID))
	fmt.Println(c.ID)
}

func listCandidates(cmd *cobra.Command) {
	ctx := context.Background()
	s := mustSetup(ctx, false)
	defer s.Close()

	project, _ := cmd.Flags().GetString("project")
	all, err := s.source.GetCandidates(ctx, project)
	if err != nil {
		s.logger.Fatal("listing candidates", zap.Error(err))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Uploaded", "Resume bytes", "Last score"})
	for _, c := range all {
		score := "-"
		if c.Analyzed != nil {
			score = strconv.Itoa(c.Analyzed.Score)
		}
		table.Append([]string{c.ID, c.Name, c.UploadedAt.Format("2006-01-02 15:04"), strconv.Itoa(len(c.Resume)), score})
	}
	table.Render()
}
