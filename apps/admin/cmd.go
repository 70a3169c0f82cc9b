package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/labstack/gommon/color"
	"golang.org/x/term"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/session"
	"github.com/ficct/horarios/services/backendapi"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	newArchiveFunc   = newArchive        // mockable

	errHelp        = errors.New("help provided")
	errNoSession   = errors.New("not logged in: run `login -username USERNAME` first")
	errAmbiguousBy = errors.New("use only one of -subject, -teacher, -teacher-name, -classroom or -group")
)

type commandLine struct {
	conf    *core.Config
	out     io.Writer
	logger  core.Logger
	session *session.Manager
	client  *backendapi.Client
	view    *schedule.View
	color   *color.Color
}

func newCommandLine(conf *core.Config, out io.Writer, logger core.Logger, sess *session.Manager) *commandLine {
	translator := core.NewTranslator()
	client := backendapi.NewClient(conf, sess, logger)
	clr := color.New()
	clr.SetOutput(out)

	return &commandLine{
		conf:    conf,
		out:     out,
		logger:  logger,
		session: sess,
		client:  client,
		view: schedule.NewView(client, schedule.ViewConfig{
			CacheTTL:             conf.Cache.TTL,
			CacheCleanupInterval: conf.Cache.CleanupInterval,
			Validate:             schedule.NewValidate(translator),
			Translator:           translator,
			Logger:               logger,
		}),
		color: clr,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME - start a session; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout - end the session")
	fmt.Fprintln(cli.out, "  whoami - show the logged in account")
	fmt.Fprintln(cli.out, "  terms - list academic terms")
	fmt.Fprintln(cli.out, "  slots - list time slots")
	fmt.Fprintln(cli.out, "  teachers [-name NAME] - list teachers, closest matches first")
	fmt.Fprintln(cli.out, "  timetable [-term ID] [-subject ID|-teacher ID|-teacher-name NAME|-classroom ID|-group ID] [-xlsx FILE] [-archive]")
	fmt.Fprintln(cli.out, "  archives [-term 2025-I] - list archived timetables")
	fmt.Fprintln(cli.out, "  assign -term ID -group ID -subject ID -teacher ID -classroom ID -slots ID,ID - create an assignment")
	fmt.Fprintln(cli.out, "  reslot -id ID -slots ID,ID - replace the time slots of an assignment")
	fmt.Fprintln(cli.out, "  unassign -id ID - delete an assignment")
	fmt.Fprintln(cli.out, "  deletegroup -id ID - delete a group and its assignments")
	fmt.Fprintln(cli.out, "  deleteterm -id ID - delete a term, its groups and assignments")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()
	if cli.conf.Backend.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 4*cli.conf.Backend.Timeout)
		defer cancel()
	}

	cmd, cmdArgs := args[1], args[2:]
	switch cmd {
	case "login":
		return cli.runLogin(ctx, cmdArgs)
	case "logout":
		return cli.logout(ctx)
	case "whoami":
		return cli.whoami()
	}

	if !isSessionCommand(cmd) {
		cli.printUsage()
		return errHelp
	}
	// everything else talks to the backend on behalf of the user
	if !cli.session.Active() {
		return errNoSession
	}
	switch cmd {
	case "terms":
		return cli.terms(ctx)
	case "slots":
		return cli.slots(ctx)
	case "teachers":
		return cli.runTeachers(ctx, cmdArgs)
	case "timetable":
		return cli.runTimetable(ctx, cmdArgs)
	case "archives":
		return cli.runArchives(ctx, cmdArgs)
	case "assign":
		return cli.runAssign(ctx, cmdArgs)
	case "reslot":
		return cli.runReslot(ctx, cmdArgs)
	case "unassign":
		return cli.runUnassign(ctx, cmdArgs)
	case "deletegroup":
		return cli.runDeleteGroup(ctx, cmdArgs)
	default: // deleteterm
		return cli.runDeleteTerm(ctx, cmdArgs)
	}
}

var sessionCommands = []string{
	"terms", "slots", "teachers", "timetable", "archives",
	"assign", "reslot", "unassign", "deletegroup", "deleteterm",
}

func isSessionCommand(cmd string) bool {
	for _, c := range sessionCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

func (cli *commandLine) runLogin(ctx context.Context, args []string) error {
	loginCmd := cli.newFlagSet("login")
	uname := loginCmd.String("username", "", "The account username. The password will be prompted next.")
	if err := parse(loginCmd, args); err != nil {
		return err
	}
	if *uname == "" {
		loginCmd.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		loginCmd.Usage()
		return errHelp
	}
	return cli.login(ctx, *uname, string(pwd))
}

func (cli *commandLine) runTeachers(ctx context.Context, args []string) error {
	teachersCmd := cli.newFlagSet("teachers")
	name := teachersCmd.String("name", "", "Part of the teacher's name.")
	limit := teachersCmd.Int("n", 5, "Maximum number of suggestions.")
	if err := parse(teachersCmd, args); err != nil {
		return err
	}
	return cli.teachers(ctx, *name, *limit)
}

type timetableOptions struct {
	filter      schedule.Filter
	teacherName string
	xlsxPath    string
	archive     bool
}

func (cli *commandLine) runTimetable(ctx context.Context, args []string) error {
	ttCmd := cli.newFlagSet("timetable")
	termID := ttCmd.Int("term", 0, "Academic term ID. Defaults to the most recent term.")
	subjectID := ttCmd.Int("subject", 0, "Only this subject.")
	teacherID := ttCmd.Int("teacher", 0, "Only this teacher.")
	teacherName := ttCmd.String("teacher-name", "", "Only the teacher whose name matches best.")
	classroomID := ttCmd.Int("classroom", 0, "Only this classroom.")
	groupID := ttCmd.Int("group", 0, "Only this group.")
	xlsxPath := ttCmd.String("xlsx", "", "Also write the timetable to this .xlsx file.")
	archive := ttCmd.Bool("archive", false, "Also archive the timetable to object storage.")
	if err := parse(ttCmd, args); err != nil {
		return err
	}

	opts := timetableOptions{
		filter: schedule.Filter{
			TermID:      *termID,
			SubjectID:   *subjectID,
			TeacherID:   *teacherID,
			ClassroomID: *classroomID,
			GroupID:     *groupID,
		},
		teacherName: strings.TrimSpace(*teacherName),
		xlsxPath:    *xlsxPath,
		archive:     *archive,
	}
	var by int
	for _, id := range []int{*subjectID, *teacherID, *classroomID, *groupID} {
		if id != 0 {
			by++
		}
	}
	if opts.teacherName != "" {
		by++
	}
	if by > 1 {
		return errAmbiguousBy
	}
	return cli.timetable(ctx, opts)
}

func (cli *commandLine) runArchives(ctx context.Context, args []string) error {
	archivesCmd := cli.newFlagSet("archives")
	term := archivesCmd.String("term", "", "Term label, e.g. 2025-I. Empty lists every term.")
	if err := parse(archivesCmd, args); err != nil {
		return err
	}
	return cli.archives(ctx, *term)
}

func (cli *commandLine) runAssign(ctx context.Context, args []string) error {
	assignCmd := cli.newFlagSet("assign")
	var na schedule.NewAssignment
	assignCmd.IntVar(&na.TermID, "term", 0, "Academic term ID.")
	assignCmd.IntVar(&na.GroupID, "group", 0, "Group ID.")
	assignCmd.IntVar(&na.SubjectID, "subject", 0, "Subject ID.")
	assignCmd.IntVar(&na.TeacherID, "teacher", 0, "Teacher ID.")
	assignCmd.IntVar(&na.ClassroomID, "classroom", 0, "Classroom ID.")
	slots := assignCmd.String("slots", "", "Comma separated time slot IDs.")
	if err := parse(assignCmd, args); err != nil {
		return err
	}
	ids, err := parseIDs(*slots)
	if err != nil {
		return err
	}
	na.SlotIDs = ids
	return cli.assign(ctx, na)
}

func (cli *commandLine) runReslot(ctx context.Context, args []string) error {
	reslotCmd := cli.newFlagSet("reslot")
	id := reslotCmd.Int("id", 0, "Assignment ID.")
	slots := reslotCmd.String("slots", "", "Comma separated time slot IDs.")
	if err := parse(reslotCmd, args); err != nil {
		return err
	}
	ids, err := parseIDs(*slots)
	if err != nil {
		return err
	}
	return cli.reslot(ctx, *id, ids)
}

func (cli *commandLine) runUnassign(ctx context.Context, args []string) error {
	unassignCmd := cli.newFlagSet("unassign")
	id := unassignCmd.Int("id", 0, "Assignment ID.")
	if err := parse(unassignCmd, args); err != nil {
		return err
	}
	return cli.unassign(ctx, *id)
}

func (cli *commandLine) runDeleteGroup(ctx context.Context, args []string) error {
	deleteCmd := cli.newFlagSet("deletegroup")
	id := deleteCmd.Int("id", 0, "Group ID.")
	if err := parse(deleteCmd, args); err != nil {
		return err
	}
	if *id <= 0 {
		deleteCmd.Usage()
		return errHelp
	}
	return cli.deleteGroup(ctx, *id)
}

func (cli *commandLine) runDeleteTerm(ctx context.Context, args []string) error {
	deleteCmd := cli.newFlagSet("deleteterm")
	id := deleteCmd.Int("id", 0, "Term ID.")
	if err := parse(deleteCmd, args); err != nil {
		return err
	}
	if *id <= 0 {
		deleteCmd.Usage()
		return errHelp
	}
	return cli.deleteTerm(ctx, *id)
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// parseIDs reads "1, 2,3" into ids.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "horarios", Error: fmt.Sprintf("%q is not a slot ID", part)})
		}
		ids = append(ids, id)
	}
	return ids, nil
}
