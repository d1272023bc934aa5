package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_safe() {
    local cur prev words cword
    _init_completion || return

    local commands="init add show rm ls status passwd encrypt decrypt export import compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add|show|rm|export|import)
            if [[ "$cur" == -* ]]; then
                case "$cmd" in
                    add) COMPREPLY=($(compgen -W "--at" -- "$cur")) ;;
                    show) COMPREPLY=($(compgen -W "--json --reveal" -- "$cur")) ;;
                    import) COMPREPLY=($(compgen -W "--yes --reveal" -- "$cur")) ;;
                esac
            elif [[ $cword -eq 2 ]]; then
                local collections
                collections=$(safe ls 2>/dev/null | awk '/record\(s\)/ {print $1}')
                COMPREPLY=($(compgen -W "$collections" -- "$cur"))
            elif [[ "$cmd" == export || "$cmd" == import ]]; then
                _filedir
            fi
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _safe safe
`

const zshCompletion = `#compdef safe

_safe() {
    local -a commands
    commands=(
        'init:Create a new safe'
        'add:Add or update a record in a collection'
        'show:Show the records of a collection'
        'rm:Remove records or a whole collection'
        'ls:Show collections and safe status'
        'status:Show collections and safe status'
        'passwd:Change the safe password'
        'encrypt:Encrypt stdin with a password'
        'decrypt:Decrypt a container from stdin'
        'export:Export a collection to a file'
        'import:Import a collection from a file'
        'compact:Compact the safe to reclaim disk space'
        'keyring:Manage password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'safe commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments '--at[Insert position]:index' '2:collection:_safe_collections' '*:field'
                    ;;
                show)
                    _arguments '--json[Print JSON]' '--reveal[Show values]' '2:collection:_safe_collections'
                    ;;
                rm)
                    _arguments '2:collection:_safe_collections'
                    ;;
                export)
                    _arguments '2:collection:_safe_collections' '3:file:_files'
                    ;;
                import)
                    _arguments '--yes[Do not ask]' '--reveal[Show values in diff]' \
                        '2:collection:_safe_collections' '3:file:_files'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'safe commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_safe_collections() {
    local -a collections
    collections=(${(f)"$(safe ls 2>/dev/null | awk '/record\(s\)/ {print $1}')"})
    _describe -t collections 'collections' collections
}

_safe "$@"
`

const fishCompletion = `# safe fish completions

set -l commands init add show rm ls status passwd encrypt decrypt export import compact keyring help completion

complete -c safe -f

function __safe_collections
    safe ls 2>/dev/null | awk '/record\(s\)/ {print $1}'
end

# Commands
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new safe'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add or update a record'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a show -d 'Show a collection'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove records or a collection'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a ls -d 'Show safe status'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show safe status'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change safe password'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt stdin'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt stdin'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export a collection'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import a collection'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact safe'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c safe -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# collections
complete -c safe -n "__fish_seen_subcommand_from add show rm export import" -a "(__safe_collections)"

# flags
complete -c safe -n "__fish_seen_subcommand_from add" -l at -d 'Insert position'
complete -c safe -n "__fish_seen_subcommand_from show" -l json -d 'Print JSON'
complete -c safe -n "__fish_seen_subcommand_from show import" -l reveal -d 'Show values'
complete -c safe -n "__fish_seen_subcommand_from import" -l yes -d 'Do not ask'
complete -c safe -n "__fish_seen_subcommand_from export import" -F

# keyring subcommands
complete -c safe -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c safe -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c safe -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
